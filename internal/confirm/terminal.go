package confirm

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	bannerStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), true, false).
			Bold(true)
	labelStyle  = lipgloss.NewStyle().Faint(true)
	optionStyle = lipgloss.NewStyle().PaddingLeft(2)
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)

// Terminal prompts the operator on a terminal. Invalid menu input re-prompts;
// a closed input stream (Ctrl-D / interrupt during read) yields ErrCancelled.
type Terminal struct {
	in  *bufio.Scanner
	out io.Writer
}

// NewTerminal builds a Terminal reading from in and writing to out. Nil
// arguments default to stdin/stdout.
func NewTerminal(in io.Reader, out io.Writer) *Terminal {
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stdout
	}
	return &Terminal{in: bufio.NewScanner(in), out: out}
}

func (t *Terminal) readLine() (string, error) {
	if !t.in.Scan() {
		return "", ErrCancelled
	}
	return strings.TrimSpace(t.in.Text()), nil
}

func (t *Terminal) Confirm(kind, original, proposed string) (string, error) {
	fmt.Fprintln(t.out, bannerStyle.Render(strings.ToUpper(kind)))
	fmt.Fprintf(t.out, "%s %s\n", labelStyle.Render("Original: "), original)
	fmt.Fprintf(t.out, "%s %s\n", labelStyle.Render("Propuesta:"), proposed)
	fmt.Fprintln(t.out, optionStyle.Render("1. Aceptar propuesta"))
	fmt.Fprintln(t.out, optionStyle.Render("2. Ingresar manualmente"))
	fmt.Fprintln(t.out, optionStyle.Render("3. Marcar como 'Otro'"))

	for {
		fmt.Fprint(t.out, "\nSelecciona (1-3): ")
		answer, err := t.readLine()
		if err != nil {
			return "", err
		}
		switch answer {
		case "1":
			return proposed, nil
		case "2":
			fmt.Fprint(t.out, "Ingresa el nombre correcto: ")
			manual, err := t.readLine()
			if err != nil {
				return "", err
			}
			if manual == "" {
				return proposed, nil
			}
			return manual, nil
		case "3":
			return "Otro", nil
		default:
			fmt.Fprintln(t.out, warnStyle.Render("Opción inválida"))
		}
	}
}

func (t *Terminal) Choose(kind, value string, options []string) (string, error) {
	fmt.Fprintln(t.out, bannerStyle.Render(strings.ToUpper(kind)))
	fmt.Fprintf(t.out, "%s %s\n", labelStyle.Render("Valor:"), value)
	for i, opt := range options {
		fmt.Fprintln(t.out, optionStyle.Render(fmt.Sprintf("%d. %s", i+1, opt)))
	}

	for {
		fmt.Fprintf(t.out, "\nSelecciona (1-%d): ", len(options))
		answer, err := t.readLine()
		if err != nil {
			return "", err
		}
		n, err := strconv.Atoi(answer)
		if err == nil && n >= 1 && n <= len(options) {
			return options[n-1], nil
		}
		fmt.Fprintln(t.out, warnStyle.Render(fmt.Sprintf("Opción inválida. Selecciona 1-%d.", len(options))))
	}
}
