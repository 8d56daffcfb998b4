package cli

import (
	"fmt"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/lipgloss"
)

// Help styles
var (
	helpDescStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Italic(true).
			MarginBottom(1)

	helpSectionStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(primaryColor).
				MarginTop(1)

	helpFlagStyle = lipgloss.NewStyle().
			Foreground(okColor).
			Bold(true)

	helpArgStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00AAAA")).
			Bold(true)

	helpDefaultStyle = lipgloss.NewStyle().
				Foreground(mutedColor).
				Italic(true)
)

type helpEntry struct {
	name       string
	help       string
	defaultVal string
}

// StyledHelpPrinter returns a kong help printer that renders with lipgloss.
func StyledHelpPrinter(description string) kong.HelpPrinter {
	return func(_ kong.HelpOptions, ctx *kong.Context) error {
		var sb strings.Builder

		sb.WriteString(TitleStyle.Render(ctx.Model.Name))
		sb.WriteString("\n")
		sb.WriteString(helpDescStyle.Render(description))
		sb.WriteString("\n")

		sb.WriteString(helpSectionStyle.Render("Usage:"))
		sb.WriteString("\n  ")
		sb.WriteString(ctx.Model.Name + " [flags] [<dir>]")
		sb.WriteString("\n")

		writeSection(&sb, "Arguments:", helpArgStyle, arguments(ctx))
		writeSection(&sb, "Flags:", helpFlagStyle, flags(ctx))

		sb.WriteString("\n")
		_, err := fmt.Fprint(ctx.Stdout, sb.String())
		return err
	}
}

func writeSection(sb *strings.Builder, title string, style lipgloss.Style, entries []helpEntry) {
	if len(entries) == 0 {
		return
	}
	sb.WriteString("\n")
	sb.WriteString(helpSectionStyle.Render(title))
	sb.WriteString("\n")
	for _, e := range entries {
		sb.WriteString("  ")
		sb.WriteString(style.Render(e.name))
		if e.help != "" {
			sb.WriteString("  ")
			sb.WriteString(e.help)
		}
		if e.defaultVal != "" {
			sb.WriteString(" ")
			sb.WriteString(helpDefaultStyle.Render("(default: " + e.defaultVal + ")"))
		}
		sb.WriteString("\n")
	}
}

func arguments(ctx *kong.Context) []helpEntry {
	var out []helpEntry
	for _, arg := range ctx.Model.Node.Positional {
		out = append(out, helpEntry{name: arg.Summary(), help: arg.Help, defaultVal: arg.Default})
	}
	return out
}

func flags(ctx *kong.Context) []helpEntry {
	out := []helpEntry{{name: "-h, --help", help: "Show context-sensitive help."}}

	for _, f := range ctx.Model.Node.Flags {
		if f.Name == "help" {
			continue
		}

		name := "--" + f.Name
		if f.Short != 0 {
			name = fmt.Sprintf("-%c, --%s", f.Short, f.Name)
		}
		if !f.IsBool() {
			name += "=" + strings.ToUpper(f.FormatPlaceHolder())
		}

		def := ""
		if !f.IsBool() {
			def = f.Default
		}
		out = append(out, helpEntry{name: name, help: f.Help, defaultVal: def})
	}
	return out
}
