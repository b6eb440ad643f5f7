package main

import (
	"context"
	"fmt"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/college"
)

func (cli *commandLine) addCollege(name string) error {
	nc := college.NewCollege{Name: name}
	if err := nc.Validate(cli.validate); err != nil {
		return core.ValidationErrorFrom(err, cli.translator)
	}
	col, err := cli.colSvc.Create(context.Background(), nc)
	if err != nil {
		return err
	}
	fmt.Printf("college %q created: %s\n", col.Name, col.ID)
	return nil
}
