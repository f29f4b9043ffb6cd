package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcmate/rcmate/internal/jobs"
)

func newSyncCommand() *cobra.Command {
	return newTransferCommand(jobs.KindSync, "Make destination match source, deleting extra files")
}

func newCopyCommand() *cobra.Command {
	return newTransferCommand(jobs.KindCopy, "Copy files from source to destination")
}

func newMoveCommand() *cobra.Command {
	return newTransferCommand(jobs.KindMove, "Move files from source to destination")
}

func newBisyncCommand() *cobra.Command {
	return newTransferCommand(jobs.KindBisync, "Bidirectionally synchronise source and destination")
}

func newTransferCommand(kind jobs.Kind, short string) *cobra.Command {
	cmd := &cobra.Command{
		Use:           fmt.Sprintf("%s <source> <dest>", kind),
		Short:         short,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return startTransfer(cmd, kind, args[0], args[1])
		},
	}
	cmd.Flags().StringArray("option", nil, "Backend option key=value (repeatable)")
	return cmd
}

func startTransfer(cmd *cobra.Command, kind jobs.Kind, source, dest string) error {
	out := newOutputFormatter(cmd)

	rawOpts, _ := cmd.Flags().GetStringArray("option")
	opts, err := parseParams(rawOpts)
	if err != nil {
		return out.Error("Invalid --option value", err)
	}

	app, err := newApp(cmd)
	if err != nil {
		return out.Error("Failed to connect to backend", err)
	}
	defer app.cleanup()

	id, err := app.jobs.Start(cmd.Context(), kind, source, dest, opts)
	if err != nil {
		return out.Error(fmt.Sprintf("Failed to start %s", kind), err)
	}

	return out.Success(fmt.Sprintf("Started %s job %d", kind, id), map[string]interface{}{
		"job_id": id,
		"kind":   string(kind),
		"source": source,
		"dest":   dest,
	})
}

func newMountCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "mount <remote:path> <mountpoint>",
		Short:         "Mount a remote path on the local filesystem",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          mountRemote,
	}
	cmd.Flags().StringArray("option", nil, "Mount option key=value (repeatable)")
	return cmd
}

func mountRemote(cmd *cobra.Command, args []string) error {
	out := newOutputFormatter(cmd)
	source, mountPoint := args[0], args[1]

	rawOpts, _ := cmd.Flags().GetStringArray("option")
	opts, err := parseParams(rawOpts)
	if err != nil {
		return out.Error("Invalid --option value", err)
	}

	app, err := newApp(cmd)
	if err != nil {
		return out.Error("Failed to connect to backend", err)
	}
	defer app.cleanup()

	if err := app.jobs.Mount(cmd.Context(), source, mountPoint, opts); err != nil {
		return out.Error("Failed to mount", err)
	}
	return out.Success(fmt.Sprintf("Mounted %s at %s", source, mountPoint), map[string]interface{}{
		"source":      source,
		"mount_point": mountPoint,
	})
}

func newUnmountCommand() *cobra.Command {
	return &cobra.Command{
		Use:           "unmount <mountpoint>",
		Short:         "Unmount a previously mounted remote",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          unmountRemote,
	}
}

func unmountRemote(cmd *cobra.Command, args []string) error {
	out := newOutputFormatter(cmd)
	mountPoint := args[0]

	app, err := newApp(cmd)
	if err != nil {
		return out.Error("Failed to connect to backend", err)
	}
	defer app.cleanup()

	if err := app.jobs.Unmount(cmd.Context(), mountPoint); err != nil {
		return out.Error("Failed to unmount", err)
	}
	return out.Success(fmt.Sprintf("Unmounted %s", mountPoint), map[string]interface{}{
		"mount_point": mountPoint,
	})
}
