package env

import (
	"errors"
	"io/fs"

	"github.com/abdul-hamid-achik/quartz/packages/core/errdef"
	"github.com/joho/godotenv"
)

// LoadDotEnv parses a .env file and returns its key/value pairs without
// exporting them to the process environment.
func LoadDotEnv(path string) (Variables, error) {
	vars, err := godotenv.Read(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, errdef.Wrap(errdef.ErrNotFound, err, "cannot read env file")
	}
	if err != nil {
		return nil, errdef.Wrap(errdef.ErrMalformedInput, err, "cannot read env file")
	}
	return Variables(vars), nil
}

// ImportDotEnv merges the variables of a .env file into scope. Existing keys
// are overwritten.
func ImportDotEnv(scope *Scope, path string) (int, error) {
	vars, err := LoadDotEnv(path)
	if err != nil {
		return 0, err
	}
	for k, v := range vars {
		scope.Variables[k] = v
	}
	return len(vars), nil
}
