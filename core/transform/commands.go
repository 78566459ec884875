package transform

import (
	"sort"

	"github.com/FocuswithJustin/mdliaison/core/errors"
)

// Default command names for the two directions.
const (
	InsertNewlines = "insert_newlines"
	RemoveNewlines = "remove_newlines"
)

var commands = map[string]Direction{
	InsertNewlines: ToDisk,
	RemoveNewlines: FromDisk,
}

// Register binds a command name to a direction so settings can refer to it.
// Registering an existing name rebinds it.
func Register(name string, d Direction) error {
	if name == "" {
		return errors.NewValidation("command", "name must not be empty")
	}
	if d != ToDisk && d != FromDisk {
		return errors.NewUnsupported("direction", d.String())
	}
	commands[name] = d
	return nil
}

// Lookup returns the direction bound to a command name.
func Lookup(name string) (Direction, error) {
	d, ok := commands[name]
	if !ok {
		return 0, errors.NewNotFound("command", name)
	}
	return d, nil
}

// Commands lists registered command names in sorted order.
func Commands() []string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Run applies the command registered as name to doc.
func Run(doc Target, name, selector string) (Result, error) {
	d, err := Lookup(name)
	if err != nil {
		return Result{}, err
	}
	return Apply(doc, selector, d)
}
