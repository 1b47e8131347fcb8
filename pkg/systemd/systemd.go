package systemd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/coreos/go-systemd/v22/dbus"
)

// DaemonReload reloads the systemd manager configuration.
// It is equivalent to running "systemctl daemon-reload".
func DaemonReload(parent context.Context) error {
	ctx, cancel := context.WithTimeout(parent, 10*time.Second)
	defer cancel()

	conn, err := dbus.NewSystemConnectionContext(ctx)
	if err != nil {
		return fmt.Errorf("connect to systemd: %w", err)
	}
	defer conn.Close()

	if err := conn.ReloadContext(ctx); err != nil {
		return fmt.Errorf("daemon-reload: %w", err)
	}
	return nil
}

// EnableService enables the specified service.
// It is equivalent to running "systemctl enable <service>".
// The service name can be provided with or without the .service suffix.
func EnableService(parent context.Context, name string) error {
	ctx, cancel := context.WithTimeout(parent, 10*time.Second)
	defer cancel()

	conn, err := dbus.NewSystemConnectionContext(ctx)
	if err != nil {
		return fmt.Errorf("connect to systemd: %w", err)
	}
	defer conn.Close()

	serviceName := ensureServiceSuffix(name)

	// The second parameter 'false' means not to enable for runtime only, but rather persistently.
	// The third parameter 'true' means to force overwrite existing symlinks.
	_, _, err = conn.EnableUnitFilesContext(ctx, []string{serviceName}, false, true)
	if err != nil {
		return fmt.Errorf("enable service %s: %w", serviceName, err)
	}

	return nil
}

// DisableService disables the specified service.
// It is equivalent to running "systemctl disable <service>".
// The service name can be provided with or without the .service suffix.
func DisableService(parent context.Context, name string) error {
	ctx, cancel := context.WithTimeout(parent, 10*time.Second)
	defer cancel()

	conn, err := dbus.NewSystemConnectionContext(ctx)
	if err != nil {
		return fmt.Errorf("connect to systemd: %w", err)
	}
	defer conn.Close()

	serviceName := ensureServiceSuffix(name)

	// The second parameter 'false' means not to disable for runtime only, but rather persistently.
	_, err = conn.DisableUnitFilesContext(ctx, []string{serviceName}, false)
	if err != nil {
		return fmt.Errorf("disable service %s: %w", serviceName, err)
	}

	return nil
}

// StartService starts the specified service.
// This function waits until the service is fully started.
// It is equivalent to running "systemctl start <service>".
// The service name can be provided with or without the .service suffix.
func StartService(parent context.Context, name string) error {
	return runJob(parent, name, "start")
}

// StopService stops the specified service.
// This function waits until the service is fully stopped.
// It is equivalent to running "systemctl stop <service>".
// The service name can be provided with or without the .service suffix.
func StopService(parent context.Context, name string) error {
	return runJob(parent, name, "stop")
}

// RestartService restarts the specified service and waits for the job to
// finish. It is equivalent to running "systemctl restart <service>".
func RestartService(parent context.Context, name string) error {
	return runJob(parent, name, "restart")
}

// IsActive reports whether the specified unit is in the "active" state.
func IsActive(parent context.Context, name string) (bool, error) {
	ctx, cancel := context.WithTimeout(parent, 10*time.Second)
	defer cancel()

	conn, err := dbus.NewSystemConnectionContext(ctx)
	if err != nil {
		return false, fmt.Errorf("connect to systemd: %w", err)
	}
	defer conn.Close()

	serviceName := ensureServiceSuffix(name)

	prop, err := conn.GetUnitPropertyContext(ctx, serviceName, "ActiveState")
	if err != nil {
		return false, fmt.Errorf("query service %s: %w", serviceName, err)
	}

	state, ok := prop.Value.Value().(string)
	if !ok {
		return false, fmt.Errorf("unexpected ActiveState value for %s", serviceName)
	}
	return state == "active", nil
}

func runJob(parent context.Context, name, verb string) error {
	ctx, cancel := context.WithTimeout(parent, 10*time.Second)
	defer cancel()

	conn, err := dbus.NewSystemConnectionContext(ctx)
	if err != nil {
		return fmt.Errorf("connect to systemd: %w", err)
	}
	defer conn.Close()

	serviceName := ensureServiceSuffix(name)

	// Make this call synchronous and wait until the job has finished.
	jobChan := make(chan string, 1) // buffered channel to avoid goroutine leaks

	// The second parameter 'replace' means to replace any existing job for the unit.
	switch verb {
	case "start":
		_, err = conn.StartUnitContext(ctx, serviceName, "replace", jobChan)
	case "stop":
		_, err = conn.StopUnitContext(ctx, serviceName, "replace", jobChan)
	case "restart":
		_, err = conn.RestartUnitContext(ctx, serviceName, "replace", jobChan)
	default:
		return fmt.Errorf("unknown job verb %q", verb)
	}
	if err != nil {
		return fmt.Errorf("%s service %s: %w", verb, serviceName, err)
	}

	select {
	case result := <-jobChan:
		if result != "done" {
			return fmt.Errorf("service %s %s failed: %s", serviceName, verb, result)
		}
		return nil

	case <-ctx.Done():
		return fmt.Errorf("timeout waiting for service %s to %s: %w", serviceName, verb, ctx.Err())
	}
}

// ensureServiceSuffix appends the .service suffix to bare unit names.
// Names that already carry a unit suffix (.service, .socket, .timer,
// .target) are returned unchanged.
func ensureServiceSuffix(name string) string {
	for _, suffix := range []string{".service", ".socket", ".timer", ".target"} {
		if strings.HasSuffix(name, suffix) {
			return name
		}
	}
	return name + ".service"
}
