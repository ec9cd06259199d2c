package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/fwojciec/dentdir"
)

// Run executes the key command.
func (c *KeyCmd) Run(deps *Dependencies) error {
	key := c.Key
	if key == "" && deps.Stdin != nil {
		line, _ := bufio.NewReader(deps.Stdin).ReadString('\n')
		key = strings.TrimSpace(line)
	}

	if err := deps.Credentials.SetAPIKey(deps.Ctx, key); err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", dentdir.ErrorMessage(err))
		return err
	}
	fmt.Fprintln(deps.Stdout, "API key saved.")
	return nil
}
