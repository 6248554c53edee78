// Package volume manages the removable backup volume as a process-wide
// scoped resource. Acquire mounts the volume if needed and returns a handle;
// the mount is released only when the last handle is released, and only if
// this process performed the mount. A volume already mounted by the system
// (or by another concern) is used in place and never unmounted from under it.
package volume
