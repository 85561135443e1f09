package session

import (
	"errors"
	"log/slog"

	"github.com/ncruces/zenity"
)

const (
	dialogTitle = "Screensaver"
	dialogText  = "Password accepted.\nContinue returns to idle watch, Quit exits the program."
)

// DialogPrompter asks the continue/quit question with a native dialog.
type DialogPrompter struct{}

func (DialogPrompter) Confirm() <-chan Choice {
	ch := make(chan Choice, 1)
	go func() {
		ch <- askContinue()
	}()
	return ch
}

func askContinue() Choice {
	err := zenity.Question(dialogText,
		zenity.Title(dialogTitle),
		zenity.QuestionIcon,
		zenity.OKLabel("Continue"),
		zenity.CancelLabel("Quit"),
	)
	if err == nil {
		return ChoiceContinue
	}
	if errors.Is(err, zenity.ErrCanceled) {
		return ChoiceQuit
	}
	// no dialog backend: the password was right, so unlock
	slog.Error("session: confirmation dialog failed", "error", err)
	return ChoiceContinue
}
