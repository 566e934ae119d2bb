package console

import (
	"errors"
	"strings"

	"github.com/pterm/pterm"
	"github.com/pterm/pterm/putils"

	"github.com/park285/cheese-duel/internal/msgcat"
	"github.com/park285/cheese-duel/internal/session"
)

var ErrNoChoice = errors.New("no choice made")

// Choice is the result of the start menu.
type Choice struct {
	Role    session.Role
	Address string
}

// Menu asks interactively whether to host or join. It needs a terminal.
func Menu(msgs *msgcat.Catalog) (Choice, error) {
	title, err := pterm.DefaultBigText.WithLetters(
		putils.LettersFromStringWithStyle("Cheese ", pterm.FgYellow.ToStyle()),
		putils.LettersFromStringWithStyle("Duel", pterm.FgDarkGray.ToStyle()),
	).Srender()
	if err == nil {
		pterm.Print(title)
	}

	host, join := msgs.Text("menu.host", nil), msgs.Text("menu.join", nil)
	picked, err := pterm.DefaultInteractiveSelect.
		WithDefaultText(msgs.Text("menu.prompt", nil)).
		WithOptions([]string{host, join}).
		Show()
	if err != nil {
		return Choice{}, err
	}
	if picked == host {
		return Choice{Role: session.Host}, nil
	}
	addr, err := pterm.DefaultInteractiveTextInput.
		WithDefaultText(msgs.Text("menu.address", nil)).
		Show()
	if err != nil {
		return Choice{}, err
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return Choice{}, ErrNoChoice
	}
	return Choice{Role: session.Joiner, Address: addr}, nil
}

// ParseArgs reads "host" or "join <addr>" from the command line. ok is false
// when args are empty and the menu should be shown.
func ParseArgs(args []string) (c Choice, ok bool, err error) {
	if len(args) == 0 {
		return Choice{}, false, nil
	}
	switch strings.ToLower(args[0]) {
	case "host":
		if len(args) != 1 {
			return Choice{}, true, errors.New("host takes no arguments")
		}
		return Choice{Role: session.Host}, true, nil
	case "join":
		if len(args) != 2 || strings.TrimSpace(args[1]) == "" {
			return Choice{}, true, errors.New("join needs an address")
		}
		return Choice{Role: session.Joiner, Address: strings.TrimSpace(args[1])}, true, nil
	default:
		return Choice{}, true, errors.New("unknown command " + args[0])
	}
}
