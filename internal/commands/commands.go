// Package commands defines the logical command names shared by every
// transport, together with the static mapping from command name to the
// HTTP route used in remote mode.
package commands

import "strings"

// Name identifies a logical backend operation, independent of transport.
type Name string

// Remote management.
const (
	GetRemotes           Name = "get_remotes"
	GetConfiguredRemotes Name = "get_configured_remotes"
	GetRemoteTypes       Name = "get_remote_types"
	GetRemoteFields      Name = "get_remote_fields"
	CreateRemote         Name = "create_remote"
	UpdateRemote         Name = "update_remote"
	DeleteRemote         Name = "delete_remote"
)

// Interactive configuration sub-protocol.
const (
	StartRemoteConfigInteractive    Name = "start_remote_config_interactive"
	ContinueRemoteConfigInteractive Name = "continue_remote_config_interactive"
	QuitRemoteConfig                Name = "quit_remote_config"
)

// Settings.
const (
	GetSettings    Name = "get_settings"
	SaveSettings   Name = "save_settings"
	DeleteSettings Name = "delete_settings"
)

// Jobs and operations.
const (
	MountRemote   Name = "mount_remote"
	UnmountRemote Name = "unmount_remote"
	StartSync     Name = "start_sync"
	StartCopy     Name = "start_copy"
	StartMove     Name = "start_move"
	StartBisync   Name = "start_bisync"
	GetJobs       Name = "get_jobs"
	GetJobStatus  Name = "get_job_status"
	StopJob       Name = "stop_job"
)

// Filesystem queries.
const (
	GetFsInfo    Name = "get_fs_info"
	ListPath     Name = "list_path"
	GetDiskUsage Name = "get_disk_usage"
)

// Backend identity.
const (
	GetBackendVersion Name = "get_backend_version"
)

// App-level queries. In remote mode these are answered client-side because
// they have no meaning outside the engine-attached shell.
const (
	GetAppTheme     Name = "get_app_theme"
	CheckForUpdates Name = "check_for_updates"
)

// routes maps command names to the relative HTTP path used in remote mode.
// Absence is tolerated; callers fall back to DerivedPath and log a warning.
var routes = map[Name]string{
	GetRemotes:           "/remotes",
	GetConfiguredRemotes: "/remotes/configured",
	GetRemoteTypes:       "/remotes/types",
	GetRemoteFields:      "/remotes/fields",
	CreateRemote:         "/create-remote",
	UpdateRemote:         "/update-remote",
	DeleteRemote:         "/delete-remote",

	StartRemoteConfigInteractive:    "/remotes/config/start",
	ContinueRemoteConfigInteractive: "/remotes/config/continue",
	QuitRemoteConfig:                "/remotes/config/quit",

	GetSettings:    "/settings",
	SaveSettings:   "/settings/save",
	DeleteSettings: "/settings/delete",

	MountRemote:   "/mount",
	UnmountRemote: "/unmount",
	StartSync:     "/jobs/sync",
	StartCopy:     "/jobs/copy",
	StartMove:     "/jobs/move",
	StartBisync:   "/jobs/bisync",
	GetJobs:       "/jobs",
	GetJobStatus:  "/jobs/status",
	StopJob:       "/jobs/stop",

	GetFsInfo:    "/fs/info",
	ListPath:     "/fs/list",
	GetDiskUsage: "/fs/usage",

	GetBackendVersion: "/version",
}

// writeSet lists the commands dispatched with POST; everything else is GET.
var writeSet = map[Name]struct{}{
	CreateRemote:                    {},
	UpdateRemote:                    {},
	DeleteRemote:                    {},
	StartRemoteConfigInteractive:    {},
	ContinueRemoteConfigInteractive: {},
	QuitRemoteConfig:                {},
	SaveSettings:                    {},
	DeleteSettings:                  {},
	MountRemote:                     {},
	UnmountRemote:                   {},
	StartSync:                       {},
	StartCopy:                       {},
	StartMove:                       {},
	StartBisync:                     {},
	StopJob:                         {},
}

// Route returns the mapped HTTP path for a command, if any.
func Route(name Name) (string, bool) {
	path, ok := routes[name]
	return path, ok
}

// IsWrite reports whether the command belongs to the write set (POST).
func IsWrite(name Name) bool {
	_, ok := writeSet[name]
	return ok
}

// DerivedPath builds the fallback path for commands missing from the route
// table: "/" plus the name with underscores replaced by hyphens.
func DerivedPath(name Name) string {
	return "/" + strings.ReplaceAll(string(name), "_", "-")
}
