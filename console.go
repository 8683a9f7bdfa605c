package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

const separator = "==========================================================="

var (
	questionColor = color.New(color.FgCyan)
	successColor  = color.New(color.FgGreen)
	failureColor  = color.New(color.FgRed)
	titleColor    = color.New(color.FgYellow, color.Bold)
	bulletColor   = color.New(color.FgBlue)
	valueColor    = color.New(color.FgYellow)
	bannerColor   = color.New(color.FgGreen, color.Bold)
	dividerColor  = color.New(color.FgBlue, color.Bold)
)

// Console asks questions and prints status lines. With auto set, every
// question returns its default without reading input.
type Console struct {
	scanner *bufio.Scanner
	out     io.Writer
	auto    bool
}

func NewConsole(in io.Reader, out io.Writer, auto bool) *Console {
	return &Console{scanner: bufio.NewScanner(in), out: out, auto: auto}
}

func (c *Console) QuestionYN(def bool, question string, fmtArgs ...interface{}) bool {
	defString := "n"
	if def {
		defString = "y"
	}
	response := c.ask(defString, []string{"y", "n"}, yesNoAliases, true, question, fmtArgs...)
	return response == "y"
}

var yesNoAliases = map[string]string{"yes": "y", "no": "n"}

func (c *Console) QuestionFree(def string, question string, fmtArgs ...interface{}) string {
	return c.Question(def, nil, false, question, fmtArgs...)
}

// QuestionValid re-asks until valid accepts the answer. An empty answer
// takes the default.
func (c *Console) QuestionValid(def string, valid func(string) bool, invalid string, question string, fmtArgs ...interface{}) string {
	if c.auto {
		return def
	}
	for {
		questionColor.Fprintf(c.out, "%s [%v]: ", fmt.Sprintf(question, fmtArgs...), def)
		response, ok := c.readLine()
		if !ok || response == "" {
			return def
		}
		if valid(response) {
			return response
		}
		failureColor.Fprintln(c.out, "❌ "+invalid)
	}
}

// Question prints s with its choices and default. When fixed, only one of
// the choices is accepted and anything else asks again.
func (c *Console) Question(def string, choices []string, fixed bool, s string, fmtArgs ...interface{}) string {
	return c.ask(def, choices, nil, fixed, s, fmtArgs...)
}

// ask is Question with aliases, extra answers that map onto a choice.
func (c *Console) ask(def string, choices []string, aliases map[string]string, fixed bool, s string, fmtArgs ...interface{}) string {
	if c.auto {
		return def
	}

	choicesFmt := fmt.Sprintf("[%v]", def)
	if choices != nil {
		choicesFmt = "(" + strings.Join(choices, "/") + ") " + choicesFmt
	}

	for {
		questionColor.Fprintln(c.out, fmt.Sprintf(s, fmtArgs...)+" "+choicesFmt)
		response, ok := c.readLine()
		if !ok || response == "" {
			return def
		}
		if !fixed {
			return response
		}
		if alias, ok := aliases[strings.ToLower(response)]; ok {
			response = alias
		}
		for i := range choices {
			if strings.EqualFold(choices[i], response) {
				return choices[i]
			}
		}
		failureColor.Fprintf(c.out, "\"%s\" is not a valid option.\n", response)
	}
}

// WaitForEnter blocks until a line is read, unless running unattended.
func (c *Console) WaitForEnter(msg string) {
	if c.auto {
		return
	}
	questionColor.Fprintln(c.out, msg)
	c.readLine()
}

func (c *Console) readLine() (string, bool) {
	if !c.scanner.Scan() {
		return "", false
	}
	return strings.TrimSpace(c.scanner.Text()), true
}

func (c *Console) Title(msg string) {
	bannerColor.Fprintln(c.out, separator)
	titleColor.Fprintln(c.out, msg)
	bannerColor.Fprintln(c.out, separator)
}

func (c *Console) Separator() {
	dividerColor.Fprintln(c.out, separator)
}

func (c *Console) Info(format string, args ...interface{}) {
	questionColor.Fprintf(c.out, format+"\n", args...)
}

func (c *Console) Success(format string, args ...interface{}) {
	successColor.Fprintf(c.out, "✅ "+format+"\n", args...)
}

func (c *Console) Failure(format string, args ...interface{}) {
	failureColor.Fprintf(c.out, "❌ "+format+"\n", args...)
}

func (c *Console) Bullet(format string, args ...interface{}) {
	bulletColor.Fprint(c.out, "• ")
	fmt.Fprintf(c.out, format+"\n", args...)
}

func (c *Console) Value(v interface{}) string {
	return valueColor.Sprint(v)
}

func (c *Console) Writer() io.Writer {
	return c.out
}
