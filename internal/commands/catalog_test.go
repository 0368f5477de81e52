package commands_test

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/watson-developer-cloud/go-sdk/internal/cli"
	"github.com/watson-developer-cloud/go-sdk/internal/commands"
)

// The commands listing and the registered command tree must not drift.
func TestCatalogMatchesRegisteredCommands(t *testing.T) {
	root := cli.NewRootCmd()
	root.AddCommand(commands.All()...)
	root.InitDefaultHelpCmd()

	var registered []string
	for _, cmd := range root.Commands() {
		if cmd.Hidden {
			continue
		}
		registered = append(registered, cmd.Name())
	}

	catalog := commands.CatalogCommandNames()
	sort.Strings(registered)
	sort.Strings(catalog)
	assert.Equal(t, catalog, registered)
}
