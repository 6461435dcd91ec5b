package docker

import (
	"fmt"
	"strings"
)

// RunSpec is a docker-run argument vector split into engine API terms.
type RunSpec struct {
	Name       string
	AutoRemove bool
	Detach     bool
	Binds      []string
	Env        []string
	Image      string
	Cmd        []string
}

// ParseRunArgs interprets the subset of docker-run flags the panel emits:
// --name, --rm, --detach/-d, -v/--volume and -e/--env, followed by the image
// and the command arguments passed to it.
func ParseRunArgs(args []string) (RunSpec, error) {
	var spec RunSpec

	i := 0
	for ; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "-") {
			break
		}

		flag, value, hasValue := strings.Cut(arg, "=")
		needValue := func() (string, error) {
			if hasValue {
				return value, nil
			}
			if i+1 >= len(args) {
				return "", fmt.Errorf("run flag %s needs a value", flag)
			}
			i++
			return args[i], nil
		}

		switch flag {
		case "--name":
			v, err := needValue()
			if err != nil {
				return RunSpec{}, err
			}
			spec.Name = v
		case "--rm":
			spec.AutoRemove = true
		case "--detach", "-d":
			spec.Detach = true
		case "-v", "--volume":
			v, err := needValue()
			if err != nil {
				return RunSpec{}, err
			}
			spec.Binds = append(spec.Binds, v)
		case "-e", "--env":
			v, err := needValue()
			if err != nil {
				return RunSpec{}, err
			}
			spec.Env = append(spec.Env, v)
		default:
			return RunSpec{}, fmt.Errorf("unsupported run flag %q", arg)
		}
	}

	if i >= len(args) {
		return RunSpec{}, fmt.Errorf("run arguments name no image")
	}
	spec.Image = args[i]
	spec.Cmd = append([]string(nil), args[i+1:]...)
	return spec, nil
}
