// Copyright (C) 2026 Early Alpha Engineering. All rights reserved.
// Use of this source code is governed by an MIT-style license that can be
// found in the LICENSE file.

package commands

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/manifoldco/promptui"
	"golang.org/x/term"
)

type Confirmer interface {
	Confirm(label string) (bool, error)
}

type promptConfirmer struct{}

func (promptConfirmer) Confirm(label string) (bool, error) {
	prompt := promptui.Prompt{
		Label:     label,
		IsConfirm: true,
	}
	_, err := prompt.Run()
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, promptui.ErrAbort), errors.Is(err, promptui.ErrInterrupt), errors.Is(err, promptui.ErrEOF):
		return false, nil
	default:
		return false, err
	}
}

// fixedConfirmer answers without asking.
type fixedConfirmer struct {
	answer bool
	reason string
	out    io.Writer
}

func (c fixedConfirmer) Confirm(label string) (bool, error) {
	answer := "no"
	if c.answer {
		answer = "yes"
	}
	fmt.Fprintf(c.out, "%s? %s (%s)\n", label, answer, c.reason)
	return c.answer, nil
}

// newConfirmer prompts on a terminal. Without one, the answer is no unless
// assumeYes is set.
func newConfirmer(assumeYes bool, out io.Writer) Confirmer {
	if assumeYes {
		return fixedConfirmer{answer: true, reason: "--yes", out: out}
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return fixedConfirmer{answer: false, reason: "stdin is not a terminal", out: out}
	}
	return promptConfirmer{}
}
