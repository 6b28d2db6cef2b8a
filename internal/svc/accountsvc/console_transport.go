package accountsvc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/mkrupp/homecase-accounts/internal/domain"
	"github.com/mkrupp/homecase-accounts/internal/infra/logging"
	"github.com/mkrupp/homecase-accounts/internal/infra/transport/console"
)

const (
	menuWidth    = 75
	sectionWidth = 40
	dateLayout   = "2006-01-02"
)

// ConsoleTransportConfig contains configuration parameters for the interactive menu.
type ConsoleTransportConfig struct {
	// Enabled runs the menu on stdin/stdout
	Enabled bool `env:"ENABLED" default:"false"`
}

type menuOption struct {
	key   string
	title string
	desc  string
	admin bool
	run   func(ctx context.Context) error
}

// ConsoleTransport drives the account service from an interactive menu.
// It keeps at most one session, the one of the operator at the terminal.
type ConsoleTransport struct {
	accountSvc AccountService
	prompter   *console.Prompter
	log        logging.Logger
	options    []menuOption

	token string
}

// NewConsoleTransport creates a ConsoleTransport reading from and writing to prompter.
func NewConsoleTransport(accountSvc AccountService, prompter *console.Prompter) *ConsoleTransport {
	ct := &ConsoleTransport{
		accountSvc: accountSvc,
		prompter:   prompter,
		log:        logging.GetLogger("svc.accountsvc.console_transport"),
	}

	ct.options = []menuOption{
		{key: "1", title: "Register", desc: "Create a new user account", run: ct.register},
		{key: "2", title: "Login", desc: "Log into your account", run: ct.login},
		{key: "3", title: "Logout", desc: "Log out of your account", run: ct.logout},
		{key: "4", title: "View Profile", desc: "View your account details", run: ct.profile},
		{key: "5", title: "Change Password", desc: "Change your account password", run: ct.changePassword},
		{key: "6", title: "Exit", desc: "Exit the application"},
		{key: "7", title: "List All Users", desc: "View all user accounts", admin: true, run: ct.listUsers},
		{key: "8", title: "Change User Role", desc: "Modify user permissions", admin: true, run: ct.changeRole},
		{key: "9", title: "Delete User", desc: "Remove a user account", admin: true, run: ct.deleteUser},
		{key: "10", title: "Update User", desc: "Change a user's email or password", admin: true, run: ct.updateUser},
	}

	return ct
}

// Run shows the menu until the operator exits, input ends or ctx is cancelled.
// Failures of individual options are printed and the menu is shown again.
func (ct *ConsoleTransport) Run(ctx context.Context) error {
	defer func() {
		if ct.token != "" {
			_ = ct.accountSvc.Logout(context.WithoutCancel(ctx), ct.token)
		}
	}()

	ct.log.DebugContext(ctx, "console started")

	for {
		current, loggedIn := ct.current(ctx)
		ct.showMenu(current, loggedIn)

		ct.prompter.Printf("\n")

		selection, err := ct.prompter.ReadLine(ctx, "Selection: ")
		if err != nil {
			return ct.stop(ctx, err)
		}

		option, ok := ct.option(selection)

		switch {
		case !ok:
			ct.prompter.Println("Invalid selection", console.Red)

			continue
		case option.run == nil:
			ct.prompter.Printf("\n")
			ct.prompter.Println("Goodbye!", console.Green)

			return nil
		case option.admin && !(loggedIn && current.Role == domain.RoleAdmin):
			ct.prompter.Println("Invalid selection or insufficient privileges", console.Red)

			continue
		}

		if err := option.run(ctx); err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return ct.stop(ctx, err)
			}

			ct.printError(err)
		}
	}
}

func (ct *ConsoleTransport) stop(ctx context.Context, err error) error {
	if errors.Is(err, io.EOF) {
		ct.prompter.Printf("\n")
		ct.prompter.Println("Goodbye!", console.Green)

		return nil
	}

	if ctx.Err() != nil {
		ct.log.DebugContext(ctx, "console stopped", "reason", ctx.Err())

		return nil
	}

	return fmt.Errorf("read selection: %w", err)
}

// current resolves the operator's session. A session that no longer resolves is dropped.
func (ct *ConsoleTransport) current(ctx context.Context) (domain.AccountView, bool) {
	if ct.token == "" {
		return domain.AccountView{}, false
	}

	view, err := ct.accountSvc.Profile(ctx, ct.token)
	if err != nil {
		ct.token = ""

		return domain.AccountView{}, false
	}

	return view, true
}

func (ct *ConsoleTransport) option(selection string) (menuOption, bool) {
	for _, option := range ct.options {
		if option.key == selection {
			return option, true
		}
	}

	return menuOption{}, false
}

func (ct *ConsoleTransport) showMenu(current domain.AccountView, loggedIn bool) {
	isAdmin := loggedIn && current.Role == domain.RoleAdmin

	ct.prompter.Printf("\n%s\n", ct.prompter.Colorize(center("Menu", menuWidth, '*'), console.Header))
	ct.prompter.Printf("\n%s\n", ct.prompter.Colorize("Main Menu:", console.Bold))
	ct.printOptions(false, console.Blue)

	switch {
	case isAdmin:
		ct.prompter.Printf("\n%s\n", ct.prompter.Colorize("Admin Menu:", console.Bold))
		ct.printOptions(true, console.Green)
		ct.prompter.Printf("\n")
		ct.prompter.Println("Logged in as ADMIN", console.Green+console.Bold)
	case loggedIn:
		ct.prompter.Printf("\n")
		ct.prompter.Println("Currently logged in as USER", console.Blue+console.Bold)
	}
}

func (ct *ConsoleTransport) printOptions(admin bool, titleColor string) {
	for _, option := range ct.options {
		if option.admin != admin {
			continue
		}

		ct.prompter.Printf("%s- %s %s %s\n",
			ct.prompter.Colorize(option.key, console.Yellow),
			ct.prompter.Colorize(option.title, titleColor),
			ct.prompter.Colorize("→", console.Bold),
			option.desc,
		)
	}
}

func (ct *ConsoleTransport) section(title string) {
	ct.prompter.Printf("\n")
	ct.prompter.Println(title, console.Header)
	ct.prompter.Println(strings.Repeat("=", sectionWidth), console.Blue)
}

func (ct *ConsoleTransport) printError(err error) {
	if StatusCode(err) == http.StatusInternalServerError {
		ct.log.Error("console operation failed", "error", err)
		ct.prompter.Println("Error: "+err.Error(), console.Red)

		return
	}

	ct.prompter.Println(Message(err), console.Red)
}

func (ct *ConsoleTransport) register(ctx context.Context) error {
	ct.section("User Registration")

	username, err := ct.prompter.ReadLine(ctx, "Enter username: ")
	if err != nil {
		return err
	}

	var password string

	for {
		if password, err = ct.prompter.ReadPassword(ctx, "Enter password: "); err != nil {
			return err
		}

		if domain.ValidatePassword(password) {
			break
		}

		ct.prompter.Println(passwordRules("Password"), console.Red)
	}

	email, err := ct.prompter.ReadLine(ctx, "Enter email: ")
	if err != nil {
		return err
	}

	if err := ct.accountSvc.RegisterUser(ctx, username, password, email); err != nil {
		return fmt.Errorf("register user: %w", err)
	}

	ct.prompter.Println("User created successfully", console.Green)

	return nil
}

func (ct *ConsoleTransport) login(ctx context.Context) error {
	if ct.token != "" {
		ct.prompter.Println("Already logged in. Please logout first.", console.Yellow)

		return nil
	}

	ct.section("Login")

	username, err := ct.prompter.ReadLine(ctx, "Username: ")
	if err != nil {
		return err
	}

	password, err := ct.prompter.ReadPassword(ctx, "Password: ")
	if err != nil {
		return err
	}

	token, err := ct.accountSvc.Authenticate(ctx, username, password)
	if err != nil {
		return fmt.Errorf("authenticate: %w", err)
	}

	ct.token = token
	ct.prompter.Println(fmt.Sprintf("Welcome, %s!", username), console.Green)

	return nil
}

func (ct *ConsoleTransport) logout(ctx context.Context) error {
	if ct.token == "" {
		ct.prompter.Println("Not logged in", console.Yellow)

		return nil
	}

	view, err := ct.accountSvc.Profile(ctx, ct.token)
	if err != nil {
		ct.token = ""
		ct.prompter.Println("No valid session found", console.Yellow)

		return nil
	}

	if err := ct.accountSvc.Logout(ctx, ct.token); err != nil {
		return fmt.Errorf("logout: %w", err)
	}

	ct.token = ""
	ct.prompter.Println(fmt.Sprintf("Goodbye, %s", view.Username), "")

	return nil
}

func (ct *ConsoleTransport) profile(ctx context.Context) error {
	if ct.token == "" {
		ct.prompter.Println("Not logged in", console.Yellow)

		return nil
	}

	view, err := ct.accountSvc.Profile(ctx, ct.token)
	if err != nil {
		return fmt.Errorf("profile: %w", err)
	}

	ct.section("User Profile:")
	ct.prompter.Printf("%s %s\n", ct.prompter.Colorize("Username:", console.Bold), view.Username)
	ct.prompter.Printf("%s %s\n", ct.prompter.Colorize("Email:", console.Bold), view.Email)
	ct.prompter.Printf("%s %s\n", ct.prompter.Colorize("Role:", console.Bold), ct.prompter.Colorize(view.Role.String(), roleColor(view.Role)))
	ct.prompter.Printf("%s %s\n", ct.prompter.Colorize("Created:", console.Bold), view.CreatedAt.Format(dateLayout))
	ct.prompter.Println(strings.Repeat("=", sectionWidth), console.Blue)

	return nil
}

func (ct *ConsoleTransport) changePassword(ctx context.Context) error {
	if ct.token == "" {
		ct.prompter.Println("Not logged in", console.Yellow)

		return nil
	}

	ct.section("Change Password")

	oldPassword, err := ct.prompter.ReadPassword(ctx, "Enter current password: ")
	if err != nil {
		return err
	}

	newPassword, err := ct.prompter.ReadPassword(ctx, "Enter new password: ")
	if err != nil {
		return err
	}

	if !domain.ValidatePassword(newPassword) {
		ct.prompter.Println(passwordRules("New password"), console.Red)

		return nil
	}

	err = ct.accountSvc.ChangePassword(ctx, ct.token, oldPassword, newPassword)

	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		ct.prompter.Println("Current password is incorrect", console.Red)
	case err != nil:
		return fmt.Errorf("change password: %w", err)
	default:
		ct.prompter.Println("Password changed successfully", console.Green)
	}

	return nil
}

func (ct *ConsoleTransport) listUsers(ctx context.Context) error {
	views, err := ct.accountSvc.ListAll(ctx, ct.token, "")
	if err != nil {
		return fmt.Errorf("list all: %w", err)
	}

	ct.prompter.Printf("\n")
	ct.prompter.Println("User List:", console.Header)
	ct.prompter.Println(strings.Repeat("=", menuWidth), console.Blue)
	ct.prompter.Printf("%s %s %s %s\n",
		ct.prompter.Colorize(fmt.Sprintf("%-20s", "Username"), console.Bold),
		ct.prompter.Colorize(fmt.Sprintf("%-30s", "Email"), console.Bold),
		ct.prompter.Colorize(fmt.Sprintf("%-10s", "Role"), console.Bold),
		ct.prompter.Colorize(fmt.Sprintf("%-15s", "Created"), console.Bold),
	)
	ct.prompter.Println(strings.Repeat("-", menuWidth), console.Blue)

	for _, view := range views {
		color := roleColor(view.Role)

		ct.prompter.Printf("%s %-30s %s %-15s\n",
			ct.prompter.Colorize(fmt.Sprintf("%-20s", view.Username), color),
			view.Email,
			ct.prompter.Colorize(fmt.Sprintf("%-10s", view.Role.String()), color),
			view.CreatedAt.Format(dateLayout),
		)
	}

	ct.prompter.Println(strings.Repeat("=", menuWidth), console.Blue)
	ct.prompter.Printf("Total users: %s\n", ct.prompter.Colorize(fmt.Sprint(len(views)), console.Green))

	return nil
}

func (ct *ConsoleTransport) changeRole(ctx context.Context) error {
	username, err := ct.prompter.ReadLine(ctx, "Enter username to modify: ")
	if err != nil {
		return err
	}

	account, ok := ct.accountSvc.Get(ctx, username)
	if !ok {
		return domain.ErrAccountNotFound
	}

	ct.prompter.Printf("Current role: %s\n", ct.prompter.Colorize(account.Role.String(), console.Green))

	role, err := ct.prompter.ReadLine(ctx, "Enter new role (admin/user): ")
	if err != nil {
		return err
	}

	if err := ct.accountSvc.ChangeRole(ctx, ct.token, username, role); err != nil {
		return fmt.Errorf("change role: %w", err)
	}

	ct.prompter.Println(fmt.Sprintf("Role updated for user %s", username), console.Green)

	return nil
}

func (ct *ConsoleTransport) deleteUser(ctx context.Context) error {
	username, err := ct.prompter.ReadLine(ctx, "Enter username to delete: ")
	if err != nil {
		return err
	}

	if err := ct.accountSvc.Delete(ctx, ct.token, username); err != nil {
		return fmt.Errorf("delete: %w", err)
	}

	ct.prompter.Println(fmt.Sprintf("User %s deleted", username), console.Green)

	return nil
}

func (ct *ConsoleTransport) updateUser(ctx context.Context) error {
	username, err := ct.prompter.ReadLine(ctx, "Enter username to update: ")
	if err != nil {
		return err
	}

	email, err := ct.prompter.ReadLine(ctx, "Enter new email (blank to keep): ")
	if err != nil {
		return err
	}

	password, err := ct.prompter.ReadPassword(ctx, "Enter new password (blank to keep): ")
	if err != nil {
		return err
	}

	if err := ct.accountSvc.Update(ctx, ct.token, username, email, password); err != nil {
		return fmt.Errorf("update: %w", err)
	}

	ct.prompter.Println(fmt.Sprintf("User %s updated", username), console.Green)

	return nil
}

func passwordRules(subject string) string {
	return fmt.Sprintf("%s must be at least %d characters long and contain uppercase, lowercase, and numbers",
		subject, domain.MinPasswordLength)
}

func roleColor(role domain.Role) string {
	if role == domain.RoleAdmin {
		return console.Green
	}

	return console.Blue
}

// center pads text with fill on both sides to width, the extra fill going right.
func center(text string, width int, fill rune) string {
	pad := width - len([]rune(text))
	if pad <= 0 {
		return text
	}

	left := pad / 2

	return strings.Repeat(string(fill), left) + text + strings.Repeat(string(fill), pad-left)
}
