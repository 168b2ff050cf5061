// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

const (
	LibraryNotFoundId Id = iota + 1
	LibraryFormatMismatchId
	LibraryLoadFailedId
	EntryPointMissingId
	InitializationFailedId
	SessionRejectedId
	ConnectorUnavailableId
	ConfigLoadFailedId
	PermissionDeniedId
)

const docsBase = "https://github.com/invowk/langhost/blob/main/docs/"

type (
	Id int

	MarkdownMsg string

	HttpLink string

	Issue struct {
		id       Id          // ID used to look up the issue
		mdMsg    MarkdownMsg // Markdown text that will be rendered
		docLinks []HttpLink
		extLinks []HttpLink
	}
)

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

// Render renders the guide for a terminal using the given glamour style
// ("dark", "light", "notty" or a path to a style file).
func (i *Issue) Render(stylePath string) (string, error) {
	md := string(i.mdMsg)
	if links := append(i.DocLinks(), i.extLinks...); len(links) > 0 {
		md += "\n\n## See also\n"
		for _, link := range links {
			md += "- <" + string(link) + ">\n"
		}
	}
	return render(md, stylePath)
}

var (
	render = glamour.Render

	libraryNotFoundIssue = &Issue{
		id: LibraryNotFoundId,
		mdMsg: `
# Runtime library not found

The host could not find the language runtime's shared library.

## Where langhost looks, in order
1. ` + "`runtime.library`" + ` in your config file, or ` + "`LANGHOST_RUNTIME_LIBRARY`" + `
2. ` + "`$LANGHOST_HOME/lib`" + `
3. the directory of the langhost executable, then ` + "`../lib`" + ` next to it
4. the system library search path

## Things you can try
- Point the config at the library explicitly:
~~~cue
runtime: library: "/opt/langrt/lib/liblangrt.so"
~~~
- Check what langhost resolved:
~~~
$ langhost config dump
~~~`,
		docLinks: []HttpLink{docsBase + "runtime-library.md"},
	}

	libraryFormatMismatchIssue = &Issue{
		id: LibraryFormatMismatchId,
		mdMsg: `
# Runtime library built for another platform

The library exists but was built for a different CPU architecture or word
size than this langhost binary. A 32-bit library cannot be loaded into a
64-bit host, and an arm64 library cannot be loaded on amd64.

## Things you can try
- Install the runtime build matching this machine
- Inspect the library:
~~~
$ langhost check --library /path/to/liblangrt.so
$ file /path/to/liblangrt.so
~~~`,
		docLinks: []HttpLink{docsBase + "runtime-library.md"},
	}

	libraryLoadFailedIssue = &Issue{
		id: LibraryLoadFailedId,
		mdMsg: `
# Runtime library failed to load

The operating system refused to load the library. Usually one of its own
dependencies is missing, or the file is not a shared library at all.

## Things you can try
- List unresolved dependencies:
~~~
$ ldd /path/to/liblangrt.so        # Linux
$ otool -L /path/to/liblangrt.dylib  # macOS
~~~
- Make sure the runtime's own ` + "`lib`" + ` directory is on the loader path`,
		docLinks: []HttpLink{docsBase + "runtime-library.md"},
	}

	entryPointMissingIssue = &Issue{
		id: EntryPointMissingId,
		mdMsg: `
# Runtime library is missing entry points

The library loaded, but does not export every function langhost needs:
` + "`langrt_create`, `langrt_run`, `langrt_shutdown`, `langrt_accept`, `langrt_destroy`" + `.

## Things you can try
- Check that the library is a langhost-compatible runtime build
- List its exports:
~~~
$ nm -D --defined-only /path/to/liblangrt.so | grep langrt_
~~~`,
		docLinks: []HttpLink{docsBase + "runtime-abi.md"},
	}

	initializationFailedIssue = &Issue{
		id: InitializationFailedId,
		mdMsg: `
# Runtime failed to initialize

The library loaded, but the runtime reported a failure while creating its
instance. The runtime's own message is shown above when it provides one.

## Things you can try
- Check ` + "`runtime.resources`" + ` points at the runtime's resource bundle
- Review ` + "`runtime.options`" + ` for values the runtime rejects
- Retry with debug logging:
~~~
$ langhost run --verbose
~~~`,
		docLinks: []HttpLink{docsBase + "runtime-abi.md"},
	}

	sessionRejectedIssue = &Issue{
		id: SessionRejectedId,
		mdMsg: `
# Session rejected

The runtime is not running, or it refused the session.

## Things you can try
- Check the host status:
~~~
$ langhost status
~~~
- Start the runtime, or enable lazy start:
~~~cue
runtime: lazy_start: true
~~~`,
	}

	connectorUnavailableIssue = &Issue{
		id: ConnectorUnavailableId,
		mdMsg: `
# No langhost service is listening

Nothing answered on the configured endpoint.

## Things you can try
- Start the service in the foreground:
~~~
$ langhost run
~~~
- Make sure client and service use the same ` + "`connector.endpoint`" + ` and
  ` + "`service.name`" + `
- Show the endpoint langhost resolved:
~~~
$ langhost config dump
~~~`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration

The config file has a syntax error or a value the schema rejects.

## Things you can try
- Show the config file location:
~~~
$ langhost config path
~~~
- Write a fresh file with every default:
~~~
$ langhost config init --force
~~~`,
		docLinks: []HttpLink{docsBase + "configuration.md"},
		extLinks: []HttpLink{"https://cuelang.org/docs/tour/"},
	}

	permissionDeniedIssue = &Issue{
		id: PermissionDeniedId,
		mdMsg: `
# Permission denied

The endpoint exists but this user may not connect to it. On Unix the socket
is created with mode 0600, so only the service's own user can connect. On
Windows access follows ` + "`connector.security_descriptor`" + `.

## Things you can try
- Run the client as the same user as the service
- Grant access with an SDDL string on Windows:
~~~cue
connector: security_descriptor: "D:P(A;;GA;;;SY)(A;;GA;;;BA)(A;;GRGW;;;AU)"
~~~`,
	}

	issues = map[Id]*Issue{
		libraryNotFoundIssue.Id():       libraryNotFoundIssue,
		libraryFormatMismatchIssue.Id(): libraryFormatMismatchIssue,
		libraryLoadFailedIssue.Id():     libraryLoadFailedIssue,
		entryPointMissingIssue.Id():     entryPointMissingIssue,
		initializationFailedIssue.Id():  initializationFailedIssue,
		sessionRejectedIssue.Id():       sessionRejectedIssue,
		connectorUnavailableIssue.Id():  connectorUnavailableIssue,
		configLoadFailedIssue.Id():      configLoadFailedIssue,
		permissionDeniedIssue.Id():      permissionDeniedIssue,
	}
)

// Values returns every catalog entry ordered by Id.
func Values() []*Issue {
	v := maps.Values(issues)
	slices.SortFunc(v, func(a, b *Issue) int { return int(a.id - b.id) })
	return v
}

func Get(id Id) *Issue {
	return issues[id]
}
