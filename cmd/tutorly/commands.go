package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strconv"

	"tutorly/internal/domain"
	"tutorly/internal/routes"
	"tutorly/internal/views"
)

func run(ctx context.Context, e *env, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, rest := args[0], args[1:]

	switch cmd {
	case "login":
		return cmdLogin(ctx, e, rest)
	case "register":
		return cmdRegister(ctx, e, rest)
	case "logout":
		e.app.Logout()
		fmt.Fprintln(e.out, "Logged out.")
		return nil
	case "courses":
		return cmdCourses(ctx, e, rest)
	case "course":
		return cmdCourse(ctx, e, rest)
	case "toggle":
		return cmdToggle(ctx, e, rest)
	case "enroll":
		return cmdEnroll(ctx, e, rest)
	case "rate":
		return cmdRate(ctx, e, rest)
	case "profile":
		return cmdProfile(ctx, e, rest)
	case "passwd":
		return cmdPasswd(ctx, e, rest)
	case "recommend":
		return cmdRecommend(ctx, e)
	case "export":
		return cmdExport(ctx, e, rest)
	case "shell":
		return runShell(ctx, e, stdin)
	case "help", "-h", "--help":
		usage(e.out)
		return nil
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
}

// quiet marks an error whose message the view already printed.
func quiet(err error) error {
	if err != nil {
		return errSilent
	}
	return nil
}

func newFlags(name string, out io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)
	return fs
}

// visit applies the route guard before a command touches a protected view.
func visit(e *env, path string) (routes.Match, error) {
	m := e.app.Visit(path)
	if m.Decision == routes.RedirectToLogin {
		return m, errLoginRequired
	}
	return m, nil
}

func courseArg(e *env, args []string) (int, error) {
	if len(args) == 0 {
		return 0, fmt.Errorf("%w: missing course id", errUsage)
	}
	m, err := visit(e, routes.PathCourses+"/"+args[0])
	if err != nil {
		return 0, err
	}
	if m.View != routes.ViewCourseDetail {
		return 0, fmt.Errorf("%w: bad course id %q", errUsage, args[0])
	}
	return m.CourseID()
}

func cmdLogin(ctx context.Context, e *env, args []string) error {
	fs := newFlags("login", e.out)
	user := fs.String("u", "", "username")
	pass := fs.String("p", "", "password")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	v := e.app.NewAuthView()
	err := v.Login(ctx, *user, *pass)
	fmt.Fprintln(e.out, v.Message())
	return quiet(err)
}

func cmdRegister(ctx context.Context, e *env, args []string) error {
	fs := newFlags("register", e.out)
	user := fs.String("u", "", "username")
	email := fs.String("e", "", "email")
	pass := fs.String("p", "", "password")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	v := e.app.NewAuthView()
	err := v.Register(ctx, *user, *email, *pass)
	fmt.Fprintln(e.out, v.Message())
	return quiet(err)
}

func cmdCourses(ctx context.Context, e *env, args []string) error {
	fs := newFlags("courses", e.out)
	q := fs.String("q", "", "search text")
	minRating := fs.Int("min-rating", 0, "minimum average rating (1-5)")
	category := fs.String("category", "", "category")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if _, err := visit(e, routes.PathCourses); err != nil {
		return err
	}

	v := e.app.NewCourseList()
	defer v.Close()
	v.SetFilter(domain.CourseListFilter{SearchQuery: *q, MinRating: *minRating, Category: *category})
	v.Load(ctx)

	switch v.State() {
	case views.StateReady:
		printCards(e.out, v.Cards())
		return nil
	case views.StateRedirected:
		return errLoginRequired
	default:
		fmt.Fprintln(e.out, v.Message())
		return errSilent
	}
}

func openCourse(ctx context.Context, e *env, args []string) (*views.CourseDetailView, error) {
	id, err := courseArg(e, args)
	if err != nil {
		return nil, err
	}
	v := e.app.NewCourseDetail(id)
	if err := v.Open(ctx); err != nil {
		if v.State() == views.StateRedirected {
			return nil, errLoginRequired
		}
		fmt.Fprintln(e.out, v.Model().Message)
		return nil, errSilent
	}
	return v, nil
}

func cmdCourse(ctx context.Context, e *env, args []string) error {
	v, err := openCourse(ctx, e, args)
	if err != nil {
		return err
	}
	defer v.Close()
	printDetail(e.out, v.Model())
	return nil
}

func cmdToggle(ctx context.Context, e *env, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("%w: toggle <id> <topic>...", errUsage)
	}
	v, err := openCourse(ctx, e, args[:1])
	if err != nil {
		return err
	}
	defer v.Close()
	// Saves already started must land before the process exits, error or not.
	defer v.Wait()

	for _, a := range args[1:] {
		i, err := strconv.Atoi(a)
		if err != nil {
			return fmt.Errorf("%w: topic %q", errUsage, a)
		}
		if err := v.Toggle(ctx, i); err != nil {
			return err
		}
	}
	v.Wait()
	fmt.Fprintln(e.out, v.Model().Progress)
	return nil
}

func cmdEnroll(ctx context.Context, e *env, args []string) error {
	v, err := openCourse(ctx, e, args)
	if err != nil {
		return err
	}
	defer v.Close()
	err = v.Enroll(ctx)
	fmt.Fprintln(e.out, v.Model().Message)
	return quiet(err)
}

func cmdRate(ctx context.Context, e *env, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: missing course id", errUsage)
	}
	fs := newFlags("rate", e.out)
	r := fs.String("r", "", "rating 1-5")
	msg := fs.String("m", "", "feedback")
	if err := fs.Parse(args[1:]); err != nil {
		return errUsage
	}
	rating, err := domain.ParseRating(*r)
	if err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	v, err := openCourse(ctx, e, args[:1])
	if err != nil {
		return err
	}
	defer v.Close()
	err = v.Rate(ctx, rating, *msg)
	fmt.Fprintln(e.out, v.Model().Message)
	return quiet(err)
}

func cmdProfile(ctx context.Context, e *env, args []string) error {
	fs := newFlags("profile", e.out)
	username := fs.String("username", "", "new username")
	email := fs.String("email", "", "new email")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if _, err := visit(e, routes.PathProfile); err != nil {
		return err
	}

	v := e.app.NewProfile()
	defer v.Close()
	v.Load(ctx)
	if v.State() != views.StateReady {
		fmt.Fprintln(e.out, v.Message())
		return errLoginRequired
	}
	if *username != "" || *email != "" {
		err := v.Update(ctx, *username, *email)
		fmt.Fprintln(e.out, v.Message())
		if err != nil {
			return errSilent
		}
	}
	printProfile(e.out, v.Profile())
	return nil
}

func cmdPasswd(ctx context.Context, e *env, args []string) error {
	fs := newFlags("passwd", e.out)
	oldPass := fs.String("old", "", "current password")
	newPass := fs.String("new", "", "new password")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if _, err := visit(e, routes.PathProfile); err != nil {
		return err
	}
	v := e.app.NewProfile()
	err := v.ChangePassword(ctx, *oldPass, *newPass)
	fmt.Fprintln(e.out, v.Message())
	return quiet(err)
}

func cmdRecommend(ctx context.Context, e *env) error {
	if _, err := visit(e, routes.PathRecommendations); err != nil {
		return err
	}
	v := e.app.NewRecommendations()
	defer v.Close()
	v.Load(ctx)
	if v.State() != views.StateReady {
		fmt.Fprintln(e.out, v.Message())
		return errSilent
	}
	printCards(e.out, v.Cards())
	return nil
}
