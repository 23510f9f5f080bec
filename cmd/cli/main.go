package main

import (
	"fmt"
	"os"

	"github.com/go-resty/resty/v2"
	"github.com/spf13/cobra"

	"taskflow/app/database"
	"taskflow/pkg/utils"
)

var (
	apiBaseURL  string
	accessToken string
)

type ResponseError struct {
	Message string `json:"message"`
}

var apiServiceBase = func() *resty.Client {
	client := resty.New().
		SetBaseURL(apiBaseURL).
		SetHeader("Accept", "application/json").
		SetError(&ResponseError{}).
		OnAfterResponse(func(c *resty.Client, resp *resty.Response) error {
			if resp.StatusCode() >= 400 {
				return fmt.Errorf(resp.Error().(*ResponseError).Message)
			}

			return nil
		})

	if accessToken != "" {
		client.SetAuthToken(accessToken)
	}

	return client
}

var rootCmd = &cobra.Command{
	Use:   "taskflow",
	Short: "TaskFlow CLI",
}

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage users",
}

var userCreateCmd = &cobra.Command{
	Use:   "create <username> <email>",
	Short: "Create a new user",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		username := args[0]
		email := args[1]
		role, _ := cmd.Flags().GetString("role")
		password := utils.GenerateRandomString(12) + "!A1"

		type registerResponse struct {
			User database.User `json:"user"`
		}

		resp, err := apiServiceBase().R().
			SetBody(map[string]string{
				"username":         username,
				"email":            email,
				"password":         password,
				"confirm_password": password,
				"role":             role,
			}).
			SetResult(&registerResponse{}).
			Post("/auth/register")

		if err != nil {
			fmt.Println("Error:", err)
			return
		}

		user := resp.Result().(*registerResponse).User

		fmt.Println("User ID  :", user.ID)
		fmt.Println("Username :", user.Username)
		fmt.Println("Email    :", user.Email)
		fmt.Println("Role     :", user.Role)
		fmt.Println("Password :", password)
	},
}

var userLoginCmd = &cobra.Command{
	Use:   "login <username> <password>",
	Short: "Authenticate and print a token pair",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		type loginResponse struct {
			User    database.User `json:"user"`
			Access  string        `json:"access"`
			Refresh string        `json:"refresh"`
		}

		resp, err := apiServiceBase().R().
			SetBody(map[string]string{
				"username": args[0],
				"password": args[1],
			}).
			SetResult(&loginResponse{}).
			Post("/auth/login")

		if err != nil {
			fmt.Println("Error:", err)
			return
		}

		result := resp.Result().(*loginResponse)

		fmt.Println("User ID :", result.User.ID)
		fmt.Println("Access  :", result.Access)
		fmt.Println("Refresh :", result.Refresh)
	},
}

var userProfileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Get user profile",
	Run: func(cmd *cobra.Command, args []string) {
		resp, err := apiServiceBase().R().
			SetResult(&database.User{}).
			Get("/user/me")

		if err != nil {
			fmt.Println("Error:", err)
			return
		}

		user := resp.Result().(*database.User)

		fmt.Println("User ID  :", user.ID)
		fmt.Println("Username :", user.Username)
		fmt.Println("Email    :", user.Email)
		fmt.Println("Role     :", user.Role)
	},
}

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage projects",
}

var projectCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a new project",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		description, _ := cmd.Flags().GetString("description")

		resp, err := apiServiceBase().R().
			SetBody(map[string]string{
				"name":        args[0],
				"description": description,
			}).
			SetResult(&database.Project{}).
			Post("/projects/")

		if err != nil {
			fmt.Println("Error:", err)
			return
		}

		project := resp.Result().(*database.Project)

		fmt.Println("Project ID :", project.ID)
		fmt.Println("Name       :", project.Name)
		fmt.Println("Status     :", project.Status)
	},
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List visible projects",
	Run: func(cmd *cobra.Command, args []string) {
		resp, err := apiServiceBase().R().
			SetResult(&[]database.Project{}).
			Get("/projects/")

		if err != nil {
			fmt.Println("Error:", err)
			return
		}

		projects := *resp.Result().(*[]database.Project)

		for _, project := range projects {
			fmt.Printf("%s  %-12s  %s\n", project.ID, project.Status, project.Name)
		}
	},
}

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage tasks",
}

var taskCreateCmd = &cobra.Command{
	Use:   "create <project_id> <title>",
	Short: "Create a new task in a project",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		priority, _ := cmd.Flags().GetString("priority")

		resp, err := apiServiceBase().R().
			SetBody(map[string]string{
				"title":    args[1],
				"priority": priority,
			}).
			SetResult(&database.Task{}).
			Post(fmt.Sprintf("/projects/%s/tasks", args[0]))

		if err != nil {
			fmt.Println("Error:", err)
			return
		}

		task := resp.Result().(*database.Task)

		fmt.Println("Task ID  :", task.ID)
		fmt.Println("Title    :", task.Title)
		fmt.Println("Status   :", task.Status)
		fmt.Println("Priority :", task.Priority)
	},
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List visible tasks",
	Run: func(cmd *cobra.Command, args []string) {
		resp, err := apiServiceBase().R().
			SetResult(&[]database.Task{}).
			Get("/tasks/")

		if err != nil {
			fmt.Println("Error:", err)
			return
		}

		tasks := *resp.Result().(*[]database.Task)

		for _, task := range tasks {
			fmt.Printf("%s  %-12s  %-8s  %s\n", task.ID, task.Status, task.Priority, task.Title)
		}
	},
}

func main() {
	userCreateCmd.Flags().String("role", database.RoleEmployee, "Account role")
	projectCreateCmd.Flags().String("description", "", "Project description")
	taskCreateCmd.Flags().String("priority", database.PriorityMedium, "Task priority")

	userCmd.AddCommand(userCreateCmd)
	userCmd.AddCommand(userLoginCmd)
	userCmd.AddCommand(userProfileCmd)
	projectCmd.AddCommand(projectCreateCmd)
	projectCmd.AddCommand(projectListCmd)
	taskCmd.AddCommand(taskCreateCmd)
	taskCmd.AddCommand(taskListCmd)
	rootCmd.AddCommand(userCmd)
	rootCmd.AddCommand(projectCmd)
	rootCmd.AddCommand(taskCmd)

	rootCmd.PersistentFlags().StringVarP(&apiBaseURL, "api", "a", "http://localhost:8000/api", "API base URL")
	rootCmd.PersistentFlags().StringVarP(&accessToken, "token", "t", "", "Access token")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
