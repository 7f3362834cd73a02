// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/slices"
)

// Id identifies a catalog entry.
type Id int

const (
	RootUnreadableId Id = iota + 1
	OutputDirInvalidId
	DestinationCreateFailedId
	IndexRenderFailedId
	ModuleCollisionId
	ConfigLoadFailedId
	UnitGenerationFailedId
)

type HttpLink string

// Issue is a catalog entry: the operation a failure belongs to, short hints
// printed with the error, and a longer markdown guide for verbose output.
type Issue struct {
	id        Id
	operation string
	hints     []string
	mdMsg     string
	extLinks  []HttpLink
}

func (i *Issue) Id() Id {
	return i.id
}

// Operation is the verb phrase used in "failed to <operation>" messages.
func (i *Issue) Operation() string {
	return i.operation
}

// Hints returns the one-line suggestions for this category.
func (i *Issue) Hints() []string {
	return slices.Clone(i.hints)
}

// Render renders the markdown guide with the given glamour style.
func (i *Issue) Render(stylePath string) (string, error) {
	md := i.mdMsg
	if len(i.extLinks) > 0 {
		md += "\n\n## See also:\n"
		for _, link := range i.extLinks {
			md += "- <" + string(link) + ">\n"
		}
	}
	return render(md, stylePath)
}

var (
	render = glamour.Render

	rootUnreadableIssue = &Issue{
		id:        RootUnreadableId,
		operation: "discover units",
		hints:     []string{"Check that the path exists and is readable"},
		mdMsg: `
# Input path is not readable!

The description path given on the command line could not be read, so nothing was generated.

## Things you can try:
- Check the spelling of the path
- Make sure the file or directory exists and you may read it
- Preview what would be picked up without writing anything:
~~~
$ dbcgen list path/to/dbc
~~~`,
		extLinks: []HttpLink{"https://www.csselectronics.com/pages/can-dbc-file-database-intro"},
	}

	outputDirInvalidIssue = &Issue{
		id:        OutputDirInvalidId,
		operation: "check output directory",
		hints:     []string{"Create the output directory before running dbcgen"},
		mdMsg: `
# Output directory is not usable!

Generated files are only written into an existing directory. dbcgen never creates it for you.

## Things you can try:
- Create the directory first:
~~~
$ mkdir -p src/can
$ dbcgen path/to/dbc src/can
~~~

- Make sure the path points to a directory, not a file`,
	}

	destinationCreateFailedIssue = &Issue{
		id:        DestinationCreateFailedId,
		operation: "write output file",
		hints:     []string{"Check free space and write permissions on the output directory"},
		mdMsg: `
# Could not create an output file!

The batch stopped because a generated file could not be written. Files generated before the failure are complete; no partial file was left behind.

## Things you can try:
- Check free space on the output volume
- Check write permissions on the output directory
- Remove read-only files that have the same name as a generated module`,
	}

	indexRenderFailedIssue = &Issue{
		id:        IndexRenderFailedId,
		operation: "write module index",
		hints:     []string{"Run again with --debug to see the full cause"},
		mdMsg: `
# Module index could not be written!

Every unit was processed, but the file declaring the generated modules could not be rendered.

## Things you can try:
- Run again with --debug to see the full cause
- Check that the index file name is not a directory
- Check write permissions on the output directory`,
	}

	moduleCollisionIssue = &Issue{
		id:        ModuleCollisionId,
		operation: "derive module names",
		hints:     []string{"Rename one of the files", "Use --collision skip to keep the first file"},
		mdMsg: `
# Two description files map to the same module!

Module names are derived from file names, so ` + "`Engine.dbc`" + ` and ` + "`engine.dbc`" + ` both become ` + "`engine`" + `. Nothing was written.

## Things you can try:
- Rename one of the files
- Exclude one of the directories:
~~~
$ dbcgen --exclude legacy path/to/dbc src/can
~~~

- Keep the first file and skip the others:
~~~
$ dbcgen --collision skip path/to/dbc src/can
~~~`,
	}

	configLoadFailedIssue = &Issue{
		id:        ConfigLoadFailedId,
		operation: "load configuration",
		hints:     []string{"Use 'dbcgen config path' to see which file was read"},
		mdMsg: `
# Failed to load configuration!

The configuration file could not be read or does not match the schema.

## Things you can try:
- Show where dbcgen looks for its configuration:
~~~
$ dbcgen config path
~~~

- Write a fresh file with every field and its default:
~~~
$ dbcgen config init
~~~

- Check DBCGEN_* environment variables for typos`,
		extLinks: []HttpLink{"https://cuelang.org/docs/"},
	}

	unitGenerationFailedIssue = &Issue{
		id:        UnitGenerationFailedId,
		operation: "generate units",
		mdMsg: `
# Some units were skipped!

The listed description files could not be read or generated. Their previous output, if any, was left untouched, and every other unit was generated.

## Things you can try:
- Run again with --debug to see the full cause of each failure
- Check each listed file for syntax errors near the reported line`,
	}

	issues = map[Id]*Issue{
		rootUnreadableIssue.Id():          rootUnreadableIssue,
		outputDirInvalidIssue.Id():        outputDirInvalidIssue,
		destinationCreateFailedIssue.Id(): destinationCreateFailedIssue,
		indexRenderFailedIssue.Id():       indexRenderFailedIssue,
		moduleCollisionIssue.Id():         moduleCollisionIssue,
		configLoadFailedIssue.Id():        configLoadFailedIssue,
		unitGenerationFailedIssue.Id():    unitGenerationFailedIssue,
	}
)

// Get returns the catalog entry for id, or nil.
func Get(id Id) *Issue {
	return issues[id]
}
