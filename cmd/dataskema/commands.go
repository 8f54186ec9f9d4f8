package main

import (
	"errors"
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/reoring/dataskema"
	"github.com/reoring/dataskema/jsonschema"
)

func newDecodeCmd(a *app) *cobra.Command {
	var (
		yaml, strict, failFast bool
		indent                 string
	)
	cmd := &cobra.Command{
		Use:   "decode TYPE [FILE]",
		Short: "Decode a document and print its canonical JSON encoding",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := fileArg(args)
			data, err := a.readInput(name)
			if err != nil {
				return err
			}
			rec, err := a.codec.Decode(cmd.Context(), args[0], source(name, data, yaml), a.decodeOptions(strict, failFast)...)
			if err != nil {
				return a.printIssues(err)
			}
			out, err := a.codec.Encode(cmd.Context(), rec, dataskema.EncodeOpt{Indent: indent})
			if err != nil {
				return a.printIssues(err)
			}
			a.log.Debug().Str("type", rec.TypeName()).Int("bytes", len(out)).Msg("decoded")
			fmt.Fprintln(a.stdout, string(out))
			return nil
		},
	}
	f := cmd.Flags()
	f.BoolVar(&yaml, "yaml", false, "read YAML input")
	f.BoolVar(&strict, "strict", false, "report undeclared keys instead of dropping them")
	f.BoolVar(&failFast, "fail-fast", false, "stop at the first issue")
	f.StringVar(&indent, "indent", "", "indent unit for the output")
	return cmd
}

func newValidateCmd(a *app) *cobra.Command {
	var yaml, strict, failFast bool
	cmd := &cobra.Command{
		Use:   "validate TYPE [FILE]",
		Short: "Decode a document and check patterns and child ids",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := fileArg(args)
			data, err := a.readInput(name)
			if err != nil {
				return err
			}
			ctx := dataskema.WithFailFast(cmd.Context(), failFast)
			rec, err := a.codec.Decode(ctx, args[0], source(name, data, yaml), a.decodeOptions(strict, failFast)...)
			if err != nil {
				return a.printIssues(err)
			}
			if err := a.codec.Validate(ctx, rec); err != nil {
				return a.printIssues(err)
			}
			a.log.Info().Str("type", rec.TypeName()).Msg("valid")
			return nil
		},
	}
	f := cmd.Flags()
	f.BoolVar(&yaml, "yaml", false, "read YAML input")
	f.BoolVar(&strict, "strict", false, "report undeclared keys")
	f.BoolVar(&failFast, "fail-fast", false, "stop at the first issue")
	return cmd
}

func newTypesCmd(a *app) *cobra.Command {
	var unions bool
	cmd := &cobra.Command{
		Use:   "types",
		Short: "List the definitions of the loaded schema",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			reg := a.codec.Registry()
			if unions {
				for _, name := range reg.Unions() {
					u, _ := reg.Union(name)
					fmt.Fprintf(a.stdout, "%s\t%s\t%s\n", name, u.Tag, strings.Join(u.Literals(), ","))
				}
				return nil
			}
			for _, name := range reg.Names() {
				s, _ := reg.Lookup(name)
				fmt.Fprintf(a.stdout, "%s\t%s\n", name, s.Kind)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&unions, "unions", false, "list union families with their discriminant and literals")
	return cmd
}

func newJSONSchemaCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "jsonschema [TYPE]",
		Short: "Export the schema as JSON Schema",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			reg := a.codec.Registry()
			var (
				doc *jsonschema.Schema
				err error
			)
			if len(args) == 1 {
				doc, err = jsonschema.FromDefinition(reg, args[0])
				if errors.Is(err, jsonschema.ErrUnknownDefinition) {
					return fmt.Errorf("unknown type %q", args[0])
				}
			} else {
				doc, err = jsonschema.FromRegistry(reg)
			}
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(doc, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, string(out))
			return nil
		},
	}
}

func fileArg(args []string) string {
	if len(args) > 1 {
		return args[1]
	}
	return ""
}
