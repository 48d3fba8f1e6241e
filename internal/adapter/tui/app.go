package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/restkeep/stockfeed/internal/core/domain"
)

// ItemSubmitter is the mutation boundary the app drives. Satisfied by
// service.Submitter.
type ItemSubmitter interface {
	Submit(ctx context.Context, fields domain.ItemFields) error
}

// Messages from the service callbacks into the program. Everything outside
// Update only sends; no state is mutated off the bubbletea loop.
type (
	SessionChangedMsg struct{ Session domain.Session }
	SettledMsg        struct{}
	SnapshotMsg       struct{ Items []domain.InventoryItem }
	ErrMsg            struct{ Err error }

	submitDoneMsg struct{ err error }
)

const (
	fieldDate = iota
	fieldItem
	fieldSize
	fieldQuantity
	fieldCount
)

type App struct {
	submitter ItemSubmitter

	loading    bool
	submitting bool
	errMsg     string
	session    domain.Session
	items      []domain.InventoryItem

	inputs [fieldCount]textinput.Model
	focus  int

	width  int
	height int
}

func NewApp(submitter ItemSubmitter) App {
	a := App{
		submitter: submitter,
		loading:   true,
	}

	labels := [fieldCount]string{"YYYY-MM-DD", "e.g., Flour", "e.g., Large, 1.75L", "e.g., 10"}
	for i := range a.inputs {
		in := textinput.New()
		in.Placeholder = labels[i]
		in.CharLimit = 64
		a.inputs[i] = in
	}
	a.inputs[fieldDate].Focus()
	return a
}

func (a App) Init() tea.Cmd { return textinput.Blink }

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		return a, nil

	case SettledMsg:
		a.loading = false
		return a, nil

	case SessionChangedMsg:
		a.session = msg.Session
		return a, nil

	case SnapshotMsg:
		a.items = msg.Items
		return a, nil

	case ErrMsg:
		if msg.Err != nil {
			a.errMsg = msg.Err.Error()
		}
		return a, nil

	case submitDoneMsg:
		a.submitting = false
		if msg.err != nil {
			a.errMsg = msg.err.Error()
			// Inputs keep their values so the user can retry.
			return a, nil
		}
		a.errMsg = ""
		for i := range a.inputs {
			a.inputs[i].SetValue("")
		}
		return a, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return a, tea.Quit
		case "tab", "down":
			return a.moveFocus(1), nil
		case "shift+tab", "up":
			return a.moveFocus(-1), nil
		case "enter":
			return a.startSubmit()
		}
	}

	if a.loading {
		return a, nil
	}

	var cmd tea.Cmd
	a.inputs[a.focus], cmd = a.inputs[a.focus].Update(msg)
	return a, cmd
}

func (a App) moveFocus(delta int) App {
	a.inputs[a.focus].Blur()
	a.focus = (a.focus + delta + fieldCount) % fieldCount
	a.inputs[a.focus].Focus()
	return a
}

func (a App) startSubmit() (tea.Model, tea.Cmd) {
	if a.loading || a.submitting {
		return a, nil
	}
	a.submitting = true
	a.errMsg = ""

	fields := a.fields()
	submitter := a.submitter
	return a, func() tea.Msg {
		return submitDoneMsg{err: submitter.Submit(context.Background(), fields)}
	}
}

func (a App) fields() domain.ItemFields {
	return domain.ItemFields{
		Date:     a.inputs[fieldDate].Value(),
		Item:     a.inputs[fieldItem].Value(),
		ItemSize: a.inputs[fieldSize].Value(),
		Quantity: a.inputs[fieldQuantity].Value(),
	}
}

// Items exposes the rendered display list, newest first.
func (a App) Items() []domain.InventoryItem { return a.items }
