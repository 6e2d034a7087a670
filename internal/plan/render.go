package plan

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
	"gopkg.in/yaml.v3"
)

// TextOptions control WriteText.
type TextOptions struct {
	// Color enables ANSI colouring of the decision flags.
	Color bool
	// HideForeign omits entities that are neither contained nor imported.
	HideForeign bool
}

type flag struct {
	on    bool
	label string
	paint *color.Color
}

type palette struct {
	contained, export, imported, upgrade, generated, header *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		contained: color.New(color.FgGreen),
		export:    color.New(color.FgCyan),
		imported:  color.New(color.FgYellow),
		upgrade:   color.New(color.FgMagenta),
		generated: color.New(color.Faint),
		header:    color.New(color.Bold),
	}
	for _, c := range []*color.Color{p.contained, p.export, p.imported, p.upgrade, p.generated, p.header} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

// WriteText renders the plan as an aligned table followed by a summary line.
func WriteText(w io.Writer, pl *Plan, opts TextOptions) error {
	pal := newPalette(opts.Color)

	header := fmt.Sprintf("strategy=%s", pl.Strategy)
	if len(pl.Output) > 0 {
		header += " output=" + strings.Join(pl.Output, ",")
	}
	header += fmt.Sprintf(" import-table=%t generated=%s", pl.CanImport, pl.GeneratedModule)

	type row struct {
		kind, name, module string
		flags              []flag
	}
	rows := make([]row, 0, len(pl.Types)+len(pl.Methods))
	for _, d := range pl.Types {
		if opts.HideForeign && !d.Contains && !d.ViaImport {
			continue
		}
		rows = append(rows, row{"type", d.Name, d.Module, []flag{
			{d.Contains, "contains", pal.contained},
			{d.Exports, "exports", pal.export},
			{d.ViaImport, "import", pal.imported},
			{d.FullVTable, "full-vtable", pal.upgrade},
			{d.Promote, "promote", pal.upgrade},
			{d.Generated, "generated", pal.generated},
		}})
	}
	for _, d := range pl.Methods {
		if opts.HideForeign && !d.Body && !d.Dictionary {
			continue
		}
		rows = append(rows, row{"method", d.Name, d.Module, []flag{
			{d.Body, "body", pal.contained},
			{d.ExportsBody, "exports-body", pal.export},
			{d.Dictionary, "dict", pal.contained},
			{d.ExportsDictionary, "exports-dict", pal.export},
		}})
	}

	nameWidth, modWidth := runewidth.StringWidth("ENTITY"), runewidth.StringWidth("MODULE")
	for _, r := range rows {
		nameWidth = max(nameWidth, runewidth.StringWidth(r.name))
		modWidth = max(modWidth, runewidth.StringWidth(r.module))
	}

	var sb strings.Builder
	sb.WriteString(header)
	sb.WriteString("\n")
	sb.WriteString(pal.header.Sprint(fmt.Sprintf("%-6s  %s  %s  %s",
		"KIND", runewidth.FillRight("ENTITY", nameWidth), runewidth.FillRight("MODULE", modWidth), "DECISIONS")))
	sb.WriteString("\n")
	for _, r := range rows {
		fmt.Fprintf(&sb, "%-6s  %s  %s  ", r.kind, runewidth.FillRight(r.name, nameWidth), runewidth.FillRight(r.module, modWidth))
		var labels []string
		for _, f := range r.flags {
			if f.on {
				labels = append(labels, f.paint.Sprint(f.label))
			}
		}
		if len(labels) == 0 {
			sb.WriteString("-")
		} else {
			sb.WriteString(strings.Join(labels, " "))
		}
		sb.WriteString("\n")
	}
	sb.WriteString(pl.Summary().String())
	sb.WriteString("\n")

	_, err := io.WriteString(w, sb.String())
	return err
}

// WriteYAML renders the plan and its summary as a YAML document.
func WriteYAML(w io.Writer, pl *Plan) error {
	doc := struct {
		Plan    `yaml:",inline"`
		Summary Summary `yaml:"summary"`
	}{*pl, pl.Summary()}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode plan: %w", err)
	}
	return enc.Close()
}
