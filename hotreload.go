//go:build !production

package duihost

// hotReloadEnabled gates OnReload. Production builds compile it out.
const hotReloadEnabled = true

// HotReloadEnabled reports whether OnReload is available in this build.
func HotReloadEnabled() bool { return hotReloadEnabled }
