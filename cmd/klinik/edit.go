package main

import (
	"fmt"
	"os"
	"slices"
	"strconv"

	"github.com/charmbracelet/huh"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/smykla-labs/klinik/internal/config"
	pkgconfig "github.com/smykla-labs/klinik/pkg/config"
)

var errNotTerminal = errors.New("edit needs an interactive terminal")

func newEditCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "edit <category>",
		Short: "Edit a settings category in an interactive form",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			category, err := pkgconfig.ParseCategory(args[0])
			if err != nil {
				return withSettingsHint(err)
			}

			if !term.IsTerminal(int(os.Stdin.Fd())) {
				return errors.WithHintf(errNotTerminal, "use 'klinik save %s key=value...' instead", category)
			}

			a, err := openApp(cmd, opts, false)
			if err != nil {
				return err
			}

			defer func() { err = errors.CombineErrors(err, a.Close()) }()

			current, err := config.CategoryFields(a.Store.Get(), category)
			if err != nil {
				return err
			}

			form, values := categoryForm(category, current)

			if err := form.Run(); err != nil {
				if errors.Is(err, huh.ErrUserAborted) {
					return nil
				}

				return errors.Wrap(err, "form failed")
			}

			fields := make(map[string]any, len(values))
			for name, read := range values {
				fields[name] = read()
			}

			if _, err := a.Store.SaveCategory(cmd.Context(), category, fields); err != nil {
				return withSettingsHint(err)
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "saved %s\n", category)

			return err
		},
	}
}

// categoryForm builds one form field per category field. The returned readers yield the
// submitted values.
func categoryForm(category pkgconfig.Category, current map[string]any) (*huh.Form, map[string]func() any) {
	names := make([]string, 0, len(current))
	for name := range current {
		names = append(names, name)
	}

	slices.Sort(names)

	fields := make([]huh.Field, 0, len(names))
	values := make(map[string]func() any, len(names))

	for _, name := range names {
		switch v := current[name].(type) {
		case bool:
			b := v
			fields = append(fields, huh.NewConfirm().Title(name).Value(&b))
			values[name] = func() any { return b }

		case int:
			s := strconv.Itoa(v)
			fields = append(fields, huh.NewInput().Title(name).Value(&s).Validate(func(in string) error {
				_, err := strconv.Atoi(in)

				return err
			}))
			values[name] = func() any { return s }

		case string:
			s := v

			switch name {
			case "backupFrequency":
				fields = append(fields, huh.NewSelect[string]().Title(name).
					Options(huh.NewOptions(enumStrings(pkgconfig.BackupFrequencies())...)...).Value(&s))
			case "logLevel":
				fields = append(fields, huh.NewSelect[string]().Title(name).
					Options(huh.NewOptions(enumStrings(pkgconfig.LogLevels())...)...).Value(&s))
			case "password":
				fields = append(fields, huh.NewInput().Title(name).EchoMode(huh.EchoModePassword).Value(&s))
			default:
				fields = append(fields, huh.NewInput().Title(name).Value(&s))
			}

			values[name] = func() any { return s }
		}
	}

	form := huh.NewForm(huh.NewGroup(fields...).Title(fmt.Sprintf("%s settings", category)))

	return form, values
}

func enumStrings[T ~string](in []T) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = string(v)
	}

	return out
}
