// ABOUTME: Embeds HTML templates into the binary using go:embed
// ABOUTME: Provides templateFS for loading page and partial templates at startup

package webadmin

import "embed"

//go:embed templates/*.html templates/partials/*.html
var templateFS embed.FS
