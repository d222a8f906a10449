package dashboard

import "html/template"

const pageHTML = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Title}}</title>
    <style>
        body {
            font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, "Helvetica Neue", Arial, sans-serif;
            margin: 0;
            padding: 24px 40px;
            color: #262730;
        }
        h1 { font-size: 28px; margin-bottom: 24px; }
        h2 { font-size: 20px; margin-top: 32px; }
        .actions { display: flex; gap: 12px; margin-bottom: 16px; }
        .actions form { margin: 0; }
        button {
            padding: 8px 16px;
            border: 1px solid #ddd;
            border-radius: 5px;
            background: white;
            font-size: 14px;
            cursor: pointer;
        }
        button.primary { background: #667eea; color: white; border-color: #667eea; }
        .flash { padding: 12px 16px; border-radius: 5px; margin-bottom: 8px; }
        .flash.success { background: #e6f4ea; color: #1e4620; }
        .flash.info { background: #e8f0fe; color: #1a3d7c; }
        .flash.warning { background: #fff8e1; color: #6b4e00; }
        .flash.error { background: #fdecea; color: #7a1c1c; }
        details { border: 1px solid #ddd; border-radius: 5px; padding: 12px 16px; margin-bottom: 16px; }
        summary { cursor: pointer; font-weight: 500; }
        table { border-collapse: collapse; width: 100%; font-size: 14px; }
        th, td { border: 1px solid #eee; padding: 6px 10px; text-align: left; }
        th { background: #fafafa; }
        tr.dirty td { background: #fffbe6; }
        input[type="number"] { width: 90px; padding: 4px; }
        .meta { color: #888; font-size: 12px; margin-top: 24px; }
    </style>
</head>
<body>
    <h1>{{.Title}}</h1>

    {{range .Flashes}}
    <div class="flash {{.Level}}">{{.Message}}</div>
    {{end}}

    {{if .Empty}}
    <div class="flash warning">No data found in the sheet. Please add headers and some records first.</div>
    {{else}}
    <div class="actions">
        <form method="post" action="/save"><button type="submit" class="primary">Save Changes</button></form>
        <form method="post" action="/discard"><button type="submit">Discard Changes</button></form>
        <form method="post" action="/reload"><button type="submit">Reload Sheet</button></form>
        <a href="/export.xlsx"><button type="button">Download .xlsx</button></a>
    </div>
    {{if .DirtyCount}}<p>{{.DirtyCount}} row(s) with unsaved changes.</p>{{end}}

    <details>
        <summary>Edit Maintenance Dues (Click to Expand)</summary>
        <form method="post" action="/edits">
            <table>
                <thead>
                    <tr>
                        <th>Row</th>
                        {{range .Editable}}<th>{{.}}</th>{{end}}
                    </tr>
                </thead>
                <tbody>
                    {{range .Grid}}
                    <tr{{if .Dirty}} class="dirty"{{end}}>
                        <td>{{.Label}}</td>
                        {{range .Cells}}<td><input type="number" name="{{.Name}}" value="{{.Value}}" min="0" step="1"></td>{{end}}
                    </tr>
                    {{end}}
                </tbody>
            </table>
            <p><button type="submit">Apply Edits</button></p>
        </form>
    </details>

    <h2>Updated Calculations</h2>
    <table>
        <thead>
            <tr>{{range .Headers}}<th>{{.}}</th>{{end}}</tr>
        </thead>
        <tbody>
            {{range .Rows}}
            <tr{{if .Dirty}} class="dirty"{{end}}>{{range .Cells}}<td>{{.}}</td>{{end}}</tr>
            {{end}}
        </tbody>
    </table>
    {{end}}

    {{if .Backend}}<p class="meta">Source: {{.Backend}}</p>{{end}}
</body>
</html>
`

const errorPageHTML = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <title>{{.Title}}</title>
    <style>
        body {
            font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, "Helvetica Neue", Arial, sans-serif;
            padding: 24px 40px;
        }
        .error { background: #fdecea; color: #7a1c1c; padding: 16px; border-radius: 5px; }
    </style>
</head>
<body>
    <h1>{{.Title}}</h1>
    <div class="error">
        <strong>{{.Heading}}</strong>
        <p>{{.Message}}</p>
    </div>
    <p><a href="/">Retry</a></p>
</body>
</html>
`

var (
	pageTemplate      = template.Must(template.New("page").Parse(pageHTML))
	errorPageTemplate = template.Must(template.New("error").Parse(errorPageHTML))
)

type pageData struct {
	Title      string
	Backend    string
	Flashes    []Flash
	Empty      bool
	Headers    []string
	Rows       []rowView
	Editable   []string
	Grid       []gridRow
	DirtyCount int
}

type rowView struct {
	Cells []string
	Dirty bool
}

type gridRow struct {
	Label string
	Dirty bool
	Cells []gridCell
}

type gridCell struct {
	Name  string
	Value string
}

type errorPageData struct {
	Title   string
	Heading string
	Message string
}
