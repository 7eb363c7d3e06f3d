package ports

import "context"

// TemplateFetcher makes a template script from a remote repository available
// locally so it can be handed to lxc-create as a template path.
type TemplateFetcher interface {
	// FetchTemplate returns the local path of the script and a cleanup
	// function the caller must run once the template is no longer needed.
	FetchTemplate(ctx context.Context, repoURL string, scriptPath string) (string, func(), error)
}
