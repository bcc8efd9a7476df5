package main

import (
	"fmt"
	"strconv"
)

// solveMath answers a math challenge question of the form "a op b".
func solveMath(question string) (string, error) {
	var (
		a, b int
		op   string
	)
	if _, err := fmt.Sscanf(question, "%d %s %d", &a, &op, &b); err != nil {
		return "", fmt.Errorf("parse question %q: %w", question, err)
	}
	switch op {
	case "+":
		return strconv.Itoa(a + b), nil
	case "-":
		return strconv.Itoa(a - b), nil
	case "*":
		return strconv.Itoa(a * b), nil
	}
	return "", fmt.Errorf("unknown operator %q", op)
}
