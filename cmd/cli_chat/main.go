package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"rules-chat/internal/client"
	"rules-chat/internal/config"
	"rules-chat/internal/session"
	"rules-chat/internal/ui"
)

func main() {
	ctx := context.Background()
	reader := bufio.NewReader(os.Stdin)

	_ = godotenv.Load()

	cfg, err := config.LoadClientConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := zap.NewNop()
	if cfg.Debug {
		logger = zap.NewExample()
	}
	defer logger.Sync()

	store, err := session.OpenFileStore(cfg.StatePath)
	if err != nil {
		log.Fatalf("open state: %v", err)
	}
	api := client.New(cfg.APIURL, store, cfg.RequestTimeout, logger)

	start, link := startFromArgs(os.Args[1:], store)
	nav := ui.NewRouter(start)

	for {
		switch nav.Current() {
		case ui.RouteLogin:
			loginMenu(ctx, reader, api, store, nav)
		case ui.RouteSignup:
			signupFlow(ctx, reader, api, nav)
		case ui.RouteForgotPassword:
			forgotPasswordFlow(ctx, reader, api, nav)
		case ui.RouteResetPassword:
			if link == "" {
				link = prompt(reader, "Paste the reset link from your email: ")
			}
			resetPasswordFlow(ctx, reader, api, store, nav, link)
			link = ""
		case ui.RouteVerify:
			verifyFlow(ctx, reader, api, store, nav, link)
			link = ""
		case ui.RouteChangePassword:
			changePasswordFlow(ctx, reader, api, store, nav)
		case ui.RouteChat:
			if err := runChat(ctx, api, store, nav); err != nil {
				logger.Error("chat ui", zap.Error(err))
				fmt.Printf("Error in chat: %v\n", err)
				nav.Navigate(ui.RouteQuit)
			}
		case ui.RouteQuit:
			fmt.Println("Bye!")
			return
		default:
			nav.Navigate(ui.StartRoute(store))
		}
	}
}

// startFromArgs soporta los deep links: `verify <link>` y `reset-password <link>`.
func startFromArgs(args []string, store session.Store) (ui.Route, string) {
	if len(args) == 0 {
		return ui.StartRoute(store), ""
	}
	link := ""
	if len(args) > 1 {
		link = args[1]
	}
	switch ui.Route(args[0]) {
	case ui.RouteVerify:
		return ui.RouteVerify, link
	case ui.RouteResetPassword:
		return ui.RouteResetPassword, link
	case ui.RouteSignup:
		return ui.RouteSignup, ""
	case ui.RouteForgotPassword:
		return ui.RouteForgotPassword, ""
	}
	return ui.StartRoute(store), ""
}

func runChat(ctx context.Context, api *client.Client, store session.Store, nav *ui.Router) error {
	fmt.Println("ctrl+t theme | ctrl+p change password | ctrl+l logout | esc quit")
	model := ui.NewChatModel(ctx, api, store, nav)
	if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
		return err
	}
	if nav.Current() == ui.RouteChat {
		nav.Navigate(ui.RouteQuit)
	}
	if model.Err != "" {
		fmt.Println(model.Err)
	}
	return nil
}

func loginMenu(ctx context.Context, reader *bufio.Reader, api *client.Client, store session.Store, nav *ui.Router) {
	fmt.Println("\n===== Ultimate Rules Chat =====")
	fmt.Println("[1] Log in")
	fmt.Println("[2] Sign up")
	fmt.Println("[3] Forgot password")
	fmt.Println("[4] Reset password (I have a link)")
	fmt.Println("[5] Verify email (I have a link)")
	fmt.Println("[6] Quit")

	switch prompt(reader, "Select an option: ") {
	case "1":
		page := ui.NewLoginPage(api, store, nav)
		page.Email = prompt(reader, "Email: ")
		page.Password = prompt(reader, "Password: ")
		page.Submit(ctx)
		report(page.Form)
	case "2":
		nav.Navigate(ui.RouteSignup)
	case "3":
		nav.Navigate(ui.RouteForgotPassword)
	case "4":
		nav.Navigate(ui.RouteResetPassword)
	case "5":
		nav.Navigate(ui.RouteVerify)
	case "6":
		nav.Navigate(ui.RouteQuit)
	default:
		fmt.Println("Invalid option.")
	}
}

func signupFlow(ctx context.Context, reader *bufio.Reader, api *client.Client, nav *ui.Router) {
	fmt.Println("\n--- Sign up ---")
	page := ui.NewSignUpPage(api, nav)
	page.Email = prompt(reader, "Email: ")
	page.Password = prompt(reader, "Password: ")
	page.ConfirmPassword = prompt(reader, "Confirm password: ")
	page.Submit(ctx)
	report(page.Form)
	if page.Status == ui.StatusError {
		nav.Navigate(ui.RouteLogin)
	}
}

func forgotPasswordFlow(ctx context.Context, reader *bufio.Reader, api *client.Client, nav *ui.Router) {
	fmt.Println("\n--- Forgot password ---")
	page := ui.NewForgotPasswordPage(api, nav)
	page.Email = prompt(reader, "Email: ")
	page.Submit(ctx)
	report(page.Form)
	if page.Status == ui.StatusError {
		nav.Navigate(ui.RouteLogin)
	}
}

func resetPasswordFlow(ctx context.Context, reader *bufio.Reader, api *client.Client, store session.Store, nav *ui.Router, link string) {
	fmt.Println("\n--- Reset password ---")
	page := ui.NewResetPasswordPage(api, store, nav, link)
	page.NewPassword = prompt(reader, "New password: ")
	page.ConfirmPassword = prompt(reader, "Confirm new password: ")
	page.Submit(ctx)
	report(page.Form)
	if page.Status == ui.StatusError {
		nav.Navigate(ui.RouteLogin)
	}
}

func verifyFlow(ctx context.Context, reader *bufio.Reader, api *client.Client, store session.Store, nav *ui.Router, link string) {
	fmt.Println("\n--- Email verification ---")
	if link == "" {
		link = prompt(reader, "Paste the verification link from your email: ")
	}
	page := ui.NewVerifyPage(api, store, nav, link)
	fmt.Println("Verifying your email...")
	page.Submit(ctx)
	report(page.Form)
	if page.Status == ui.StatusError {
		prompt(reader, "Press enter to go to login.")
		page.GoToLogin()
	}
}

func changePasswordFlow(ctx context.Context, reader *bufio.Reader, api *client.Client, store session.Store, nav *ui.Router) {
	fmt.Println("\n--- Change password ---")
	page := ui.NewChangePasswordPage(api, store, nav)
	page.Email = prompt(reader, "Email: ")
	page.OldPassword = prompt(reader, "Current password: ")
	page.NewPassword = prompt(reader, "New password: ")
	page.Submit(ctx)
	report(page.Form)
	if page.Status == ui.StatusError && nav.Current() == ui.RouteChangePassword {
		nav.Navigate(ui.RouteChat)
	}
}

func report(f ui.Form) {
	switch f.Status {
	case ui.StatusError:
		fmt.Printf("Error: %s\n", f.Message)
	case ui.StatusSuccess:
		if f.Message != "" {
			fmt.Println(f.Message)
		}
	}
}

func prompt(reader *bufio.Reader, label string) string {
	fmt.Print(label)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		// stdin cerrado: no hay forma de seguir pidiendo datos.
		fmt.Println()
		os.Exit(0)
	}
	return strings.TrimSpace(line)
}
