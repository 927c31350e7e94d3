package main

import (
	"fmt"
	"strings"
)

type versionCmd struct{ r *root }

func (v *versionCmd) Run() error {
	parts := []string{fmt.Sprintf("%s version %s", v.r.program, version)}
	if commit != "" {
		parts = append(parts, "commit "+commit)
	}
	if date != "" {
		parts = append(parts, "built "+date)
	}
	fmt.Println(strings.Join(parts, ", "))
	return nil
}
