package export

import "html/template"

type pageData struct {
	Title    string
	Keywords []string
	BaseCSS  template.CSS
	CodeCSS  template.CSS
	Content  template.HTML
}

var pageTmpl = template.Must(template.New("preview").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{.Title}}</title>
{{- if .Keywords}}
<meta name="keywords" content="{{range $i, $k := .Keywords}}{{if $i}}, {{end}}{{$k}}{{end}}">
{{- end}}
<style>
{{.BaseCSS}}
{{.CodeCSS}}
</style>
</head>
<body>
{{.Content}}
</body>
</html>
`))

const baseCSS = `body {
  font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Oxygen, Ubuntu, Cantarell, sans-serif;
  line-height: 1.6;
  max-width: 800px;
  margin: 0 auto;
  padding: 20px;
  color: #333;
}
pre {
  background-color: #f6f8fa;
  border-radius: 6px;
  padding: 16px;
  overflow: auto;
}
code {
  font-family: SFMono-Regular, Consolas, "Liberation Mono", Menlo, monospace;
  background-color: rgba(27, 31, 35, 0.05);
  border-radius: 3px;
  padding: 0.2em 0.4em;
}
pre code {
  background-color: transparent;
  padding: 0;
}
blockquote {
  border-left: 4px solid #dfe2e5;
  color: #6a737d;
  padding: 0 1em;
  margin: 0;
}
table {
  border-collapse: collapse;
  width: 100%;
}
table th, table td {
  border: 1px solid #dfe2e5;
  padding: 6px 13px;
}
table tr:nth-child(2n) {
  background-color: #f6f8fa;
}
img {
  max-width: 100%;
}
.render-error {
  border: 1px solid #d73a49;
  color: #d73a49;
  padding: 12px;
}`
