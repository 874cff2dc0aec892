//go:build production

package duihost

const hotReloadEnabled = false

// HotReloadEnabled reports whether OnReload is available in this build.
func HotReloadEnabled() bool { return hotReloadEnabled }
