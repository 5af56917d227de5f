package mcpserver

// DialectGuide describes the Markdown the editor renders, for tool clients
// that write documents.
const DialectGuide = `# mdpad Markdown Dialect

Documents are rendered with GitHub Flavored Markdown plus a few extras.

## Rendering

- Tables, strikethrough, task lists and bare-URL autolinks (GFM).
- Smart typography: straight quotes become curly, ` + "`--`" + ` becomes an en dash,
  ` + "`...`" + ` becomes an ellipsis.
- Single newlines inside a paragraph are kept as line breaks.
- Headings get generated ` + "`id`" + ` attributes for in-page links.
- Raw HTML is passed through unchanged.

## Code

Fenced code blocks are highlighted when the info string names a known
language:

` + "````" + `markdown
` + "```go" + `
fmt.Println("hi")
` + "```" + `
` + "````" + `

Blocks without a language, or with an unknown one, are shown as plain text.

## Metadata

Optional YAML frontmatter at the top of the document:

` + "```" + `markdown
---
title: Used as the exported page title
tags: [used, as, keywords]
---
` + "```" + `

Without a ` + "`title`" + `, the first level-one heading is used.

## Editing

- Documents are UTF-8 text. Binary content is rejected.
- ` + "`write_document`" + ` accepts an optional ` + "`if_match`" + ` checksum (from
  ` + "`read_document`" + `) and fails if the document changed meanwhile.
`
