package patch

import (
	"context"
)

// ApplyToMemory merges cs into content and returns the merged text. content is not modified.
func ApplyToMemory(ctx context.Context, cs *ChangeSet, content string, opts Options) (string, *Result, error) {
	out := NewOutput(nil)
	result, err := Merge(ctx, ParseDocument(content), cs, out, opts)
	if err != nil {
		return "", nil, err
	}
	return out.String(), result, nil
}

// ApplyMemoryPatch parses a single-file patch and merges it into content.
func ApplyMemoryPatch(ctx context.Context, patchBody, content string, opts Options) (string, *Result, error) {
	sets, err := parseAll(ctx, patchBody, opts)
	if err != nil {
		return "", nil, err
	}
	cs, err := single(sets)
	if err != nil {
		return "", nil, err
	}
	return ApplyToMemory(ctx, cs, content, opts)
}
