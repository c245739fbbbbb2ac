package ui

import (
	"context"
	"errors"
	"net/http"

	"rules-chat/internal/client"
	"rules-chat/internal/session"
)

const minPasswordLength = 8

type LoginAPI interface {
	Login(ctx context.Context, username, password string) (client.TokenResponse, error)
}

type SignupAPI interface {
	Signup(ctx context.Context, email, password string) (string, error)
}

type ChangePasswordAPI interface {
	ChangePassword(ctx context.Context, email, oldPassword, newPassword string) (string, error)
}

type ForgotPasswordAPI interface {
	ForgotPassword(ctx context.Context, email string) (string, error)
}

type ResetPasswordAPI interface {
	ResetPassword(ctx context.Context, token, newPassword string) (client.TokenResponse, error)
}

type VerifyAPI interface {
	VerifyEmail(ctx context.Context, token string) (client.TokenResponse, error)
}

type LoginPage struct {
	Form
	Email    string
	Password string

	api   LoginAPI
	store session.Store
	nav   Navigator
}

func NewLoginPage(api LoginAPI, store session.Store, nav Navigator) *LoginPage {
	return &LoginPage{api: api, store: store, nav: nav}
}

func (p *LoginPage) Submit(ctx context.Context) {
	p.begin()
	resp, err := p.api.Login(ctx, p.Email, p.Password)
	if err != nil {
		var apiErr *client.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusForbidden {
			p.fail(apiErr.Message)
			return
		}
		p.fail("Invalid email or password")
		return
	}
	if err := p.store.SetToken(resp.AccessToken); err != nil {
		p.fail("Could not save session: " + err.Error())
		return
	}
	p.succeed("")
	p.nav.Navigate(RouteChat)
}

type SignUpPage struct {
	Form
	Email           string
	Password        string
	ConfirmPassword string

	api SignupAPI
	nav Navigator
}

func NewSignUpPage(api SignupAPI, nav Navigator) *SignUpPage {
	return &SignUpPage{api: api, nav: nav}
}

func (p *SignUpPage) Submit(ctx context.Context) {
	p.Message = ""
	if p.Password != p.ConfirmPassword {
		p.fail("Passwords do not match")
		return
	}
	if len(p.Password) < minPasswordLength {
		p.fail("Password must be at least 8 characters long")
		return
	}
	p.begin()
	msg, err := p.api.Signup(ctx, p.Email, p.Password)
	if err != nil {
		p.fail(displayError(err, "Failed to create account"))
		return
	}
	p.succeed(msg)
	p.nav.Navigate(RouteLogin)
}

type ChangePasswordPage struct {
	Form
	Email       string
	OldPassword string
	NewPassword string

	api   ChangePasswordAPI
	store session.Store
	nav   Navigator
}

func NewChangePasswordPage(api ChangePasswordAPI, store session.Store, nav Navigator) *ChangePasswordPage {
	return &ChangePasswordPage{api: api, store: store, nav: nav}
}

func (p *ChangePasswordPage) Submit(ctx context.Context) {
	p.begin()
	_, err := p.api.ChangePassword(ctx, p.Email, p.OldPassword, p.NewPassword)
	if err != nil {
		if forceLogout(err, p.store, p.nav) {
			p.fail("Your session has expired. Please log in again.")
			return
		}
		p.fail(displayError(err, "Failed to change password"))
		return
	}
	p.succeed("Password changed successfully!")
	p.nav.Navigate(RouteChat)
}

type ForgotPasswordPage struct {
	Form
	Email string

	api ForgotPasswordAPI
	nav Navigator
}

func NewForgotPasswordPage(api ForgotPasswordAPI, nav Navigator) *ForgotPasswordPage {
	return &ForgotPasswordPage{api: api, nav: nav}
}

func (p *ForgotPasswordPage) Submit(ctx context.Context) {
	p.begin()
	msg, err := p.api.ForgotPassword(ctx, p.Email)
	if err != nil {
		p.fail(displayError(err, "An unexpected error occurred"))
		return
	}
	if msg == "" {
		msg = "If an account exists for this email, you will receive a password reset link."
	}
	p.succeed(msg)
	p.nav.Navigate(RouteLogin)
}

type ResetPasswordPage struct {
	Form
	Token           string
	NewPassword     string
	ConfirmPassword string

	api   ResetPasswordAPI
	store session.Store
	nav   Navigator
}

// NewResetPasswordPage recibe el link del correo o el token solo.
func NewResetPasswordPage(api ResetPasswordAPI, store session.Store, nav Navigator, link string) *ResetPasswordPage {
	return &ResetPasswordPage{api: api, store: store, nav: nav, Token: TokenFromLink(link)}
}

func (p *ResetPasswordPage) Submit(ctx context.Context) {
	p.Message = ""
	if p.NewPassword != p.ConfirmPassword {
		p.fail("Passwords do not match")
		return
	}
	if len(p.NewPassword) < minPasswordLength {
		p.fail("Password must be at least 8 characters long")
		return
	}
	if p.Token == "" {
		p.fail("Invalid reset link")
		return
	}
	p.begin()
	resp, err := p.api.ResetPassword(ctx, p.Token, p.NewPassword)
	if err != nil {
		p.fail(displayError(err, "An unexpected error occurred"))
		return
	}
	if err := p.store.SetToken(resp.AccessToken); err != nil {
		p.fail("Could not save session: " + err.Error())
		return
	}
	p.succeed("Password has been reset successfully!")
	p.nav.Navigate(RouteChat)
}

type VerifyPage struct {
	Form
	Token string

	api   VerifyAPI
	store session.Store
	nav   Navigator
}

func NewVerifyPage(api VerifyAPI, store session.Store, nav Navigator, link string) *VerifyPage {
	return &VerifyPage{api: api, store: store, nav: nav, Token: TokenFromLink(link)}
}

// Submit verifica al cargar la pagina; no hay formulario.
func (p *VerifyPage) Submit(ctx context.Context) {
	if p.Token == "" {
		p.fail("No verification token found")
		return
	}
	p.begin()
	resp, err := p.api.VerifyEmail(ctx, p.Token)
	if err != nil {
		p.fail(displayError(err, "An unexpected error occurred during verification"))
		return
	}
	if err := p.store.SetToken(resp.AccessToken); err != nil {
		p.fail("Could not save session: " + err.Error())
		return
	}
	p.succeed("Your email has been verified successfully!")
	p.nav.Navigate(RouteChat)
}

// GoToLogin es la salida ofrecida cuando la verificacion falla.
func (p *VerifyPage) GoToLogin() {
	p.nav.Navigate(RouteLogin)
}
