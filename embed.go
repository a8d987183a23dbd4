package venus

import "embed"

// ContentFS holds the Markdown insights served by /api/insights.
//
//go:embed content/insights/*.md
var ContentFS embed.FS
