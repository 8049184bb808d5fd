package main

import (
	"database/sql"
	"fmt"
	"io/fs"
	"strconv"

	"github.com/trezcool/goose"

	appfs "github.com/llpmm/campus/fs"
)

type (
	migrateFunc   func(db *sql.DB, fsys fs.FS, dir string) error
	migrateToFunc func(db *sql.DB, fsys fs.FS, dir string, version int64) error
)

// mockable
var (
	gooseFuncs = map[string]migrateFunc{
		"up":        goose.Up,
		"up-by-one": goose.UpByOne,
		"down":      goose.Down,
		"redo":      goose.Redo,
	}
	gooseToFuncs = map[string]migrateToFunc{
		"up-to":   goose.UpTo,
		"down-to": goose.DownTo,
	}
)

func (cli *commandLine) migrate(args []string) error {
	command := args[0]
	if fn, ok := gooseFuncs[command]; ok {
		return fn(cli.db, appfs.FS, "migrations")
	}
	fn, ok := gooseToFuncs[command]
	if !ok {
		return fmt.Errorf("%q: no such command", command)
	}
	if len(args) < 2 {
		return fmt.Errorf("%s must be of form: migrate %s VERSION", command, command)
	}
	version, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return fmt.Errorf("version must be a number (got '%s')", args[1])
	}
	return fn(cli.db, appfs.FS, "migrations", version)
}
