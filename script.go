package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
)

const scriptTitle = "Vizir - Minecraft Server"

var batTemplate = template.Must(template.New("start_server.bat").Funcs(scriptFuncs).Parse(
	"@echo off\r\n" +
		"title {{.Title}}\r\n" +
		"cd /d \"%~dp0\"\r\n" +
		"{{quote .Java}} -Xmx{{.RAM}} -jar {{.Jar}}{{if not .GUI}} nogui{{end}}\r\n" +
		"pause\r\n"))

var shTemplate = template.Must(template.New("start_server.sh").Funcs(scriptFuncs).Parse(
	"#!/usr/bin/env sh\n" +
		"# {{.Title}}\n" +
		"cd \"$(dirname \"$0\")\" || exit 1\n" +
		"exec {{quote .Java}} -Xmx{{.RAM}} -jar {{.Jar}}{{if not .GUI}} nogui{{end}}\n"))

var scriptFuncs = template.FuncMap{
	"quote": func(s string) string {
		if strings.ContainsAny(s, " \t") {
			return `"` + s + `"`
		}
		return s
	},
}

// StartScript describes the launch script written next to the server jar.
type StartScript struct {
	RAM  string
	GUI  bool
	Java string
	GOOS string
}

func (s StartScript) FileName() string {
	if s.GOOS == "windows" {
		return "start_server.bat"
	}
	return "start_server.sh"
}

func (s StartScript) Render() (string, error) {
	tmpl := shTemplate
	if s.GOOS == "windows" {
		tmpl = batTemplate
	}

	java := s.Java
	if java == "" {
		java = "java"
	}

	var buf bytes.Buffer
	err := tmpl.Execute(&buf, struct {
		Title string
		Java  string
		RAM   string
		Jar   string
		GUI   bool
	}{scriptTitle, java, s.RAM, ServerJarName, s.GUI})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

// WriteStartScript renders s into installPath and returns the file path.
func WriteStartScript(installPath string, s StartScript) (string, error) {
	if s.RAM == "" {
		return "", fmt.Errorf("no memory size given for the start script")
	}
	content, err := s.Render()
	if err != nil {
		return "", err
	}

	scriptPath := filepath.Join(installPath, s.FileName())
	if err := os.WriteFile(scriptPath, []byte(content), 0755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", s.FileName(), err)
	}
	return scriptPath, nil
}
