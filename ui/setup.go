package ui

import (
	"fmt"

	"github.com/charmbracelet/huh"

	"node.town/autolingo/model"
)

func languageOptions() []huh.Option[model.Language] {
	options := make([]huh.Option[model.Language], len(model.Languages))
	for i, l := range model.Languages {
		options[i] = huh.NewOption(fmt.Sprintf("%s (%s)", l.Label, l.Code), l.Label)
	}
	return options
}

// SetupForm edits speakers in place: the salesperson first, then the
// customer.
func SetupForm(speakers *[2]model.Speaker) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Salesperson name").
				Placeholder("Agent").
				Value(&speakers[0].Name),
			huh.NewSelect[model.Language]().
				Title("Salesperson speaks").
				Options(languageOptions()...).
				Value(&speakers[0].Language),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Customer name").
				Placeholder("Customer").
				Value(&speakers[1].Name),
			huh.NewSelect[model.Language]().
				Title("Customer speaks").
				Options(languageOptions()...).
				Value(&speakers[1].Language).
				Validate(func(l model.Language) error {
					if l == speakers[0].Language {
						return fmt.Errorf("pick a different language than the salesperson")
					}
					return nil
				}),
		),
	)
}

// ConfirmDelete asks before a saved session is removed.
func ConfirmDelete(id string, confirmed *bool) *huh.Form {
	return huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title(fmt.Sprintf("Delete session %s?", id)).
			Value(confirmed),
	))
}
