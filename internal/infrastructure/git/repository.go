// Package git reads release tags and commit history from a repository with go-git.
package git

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	rperrors "github.com/relicta-tech/nextversion/internal/errors"
)

// DefaultLocalTimeout bounds a single local repository walk.
const DefaultLocalTimeout = 30 * time.Second

// withLocalTimeout applies DefaultLocalTimeout unless ctx already has a shorter deadline.
func withLocalTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if deadline, ok := ctx.Deadline(); ok {
		if time.Until(deadline) < DefaultLocalTimeout {
			return ctx, func() {}
		}
	}
	return context.WithTimeout(ctx, DefaultLocalTimeout)
}

// Tag is a git tag resolved to the commit it points at.
type Tag struct {
	// Name is the full tag name, e.g. "v1.2.0".
	Name string `json:"name"`
	// Version is Name without the configured tag prefix.
	Version string `json:"version"`
	// Hash is the tagged commit.
	Hash string `json:"hash"`
	// Annotated reports whether the tag has its own tag object.
	Annotated bool `json:"annotated"`
}

// Repository is a read-only view of a git repository.
type Repository struct {
	repo   *git.Repository
	root   string
	logger *slog.Logger
}

// Option configures a Repository.
type Option func(*Repository)

// WithLogger sets the logger used for tag discovery diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Repository) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Open opens the repository containing path, searching parent directories
// for the .git directory.
func Open(path string, opts ...Option) (*Repository, error) {
	const op = "git.Open"

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, rperrors.GitWrap(err, op, "failed to get absolute path")
	}

	repo, err := git.PlainOpenWithOptions(absPath, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, rperrors.GitWrap(err, op, fmt.Sprintf("failed to open repository at %s", absPath))
	}

	r := &Repository{
		repo:   repo,
		root:   absPath,
		logger: slog.Default().With("component", "git"),
	}
	if wt, err := repo.Worktree(); err == nil {
		r.root = wt.Filesystem.Root()
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// IsNotRepository reports whether err from Open means no repository was found.
func IsNotRepository(err error) bool {
	return errors.Is(err, git.ErrRepositoryNotExists)
}

// Root returns the repository work tree root.
func (r *Repository) Root() string {
	return r.root
}

// Tags returns the release tags for prefix, sorted by name. A tag carrying
// prefix has it stripped from Version; a tag without it is kept only when it
// is a bare version such as "0.1.0", so other components' prefixed tags in
// the same repository are ignored.
func (r *Repository) Tags(ctx context.Context, prefix string) ([]Tag, error) {
	const op = "git.Repository.Tags"

	ctx, cancel := withLocalTimeout(ctx)
	defer cancel()

	iter, err := r.repo.Tags()
	if err != nil {
		return nil, rperrors.GitWrap(err, op, "failed to get tags iterator")
	}
	defer iter.Close()

	var tags []Tag
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		version, ok := tagVersion(ref.Name().Short(), prefix)
		if !ok {
			return nil
		}
		tag, ok := r.resolveTag(ref)
		if !ok {
			return nil
		}
		tag.Version = version
		tags = append(tags, tag)
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, rperrors.GitWrap(ctx.Err(), op, "operation canceled")
		}
		return nil, rperrors.GitWrap(err, op, "failed to iterate tags")
	}

	sort.Slice(tags, func(i, j int) bool { return tags[i].Name < tags[j].Name })
	return tags, nil
}

// tagVersion strips prefix from name. Names without prefix qualify only when
// they start with a digit.
func tagVersion(name, prefix string) (string, bool) {
	if strings.HasPrefix(name, prefix) {
		return strings.TrimPrefix(name, prefix), true
	}
	if name != "" && '0' <= name[0] && name[0] <= '9' {
		return name, true
	}
	return "", false
}

// resolveTag peels ref to its commit. Tags pointing at trees or blobs are skipped.
func (r *Repository) resolveTag(ref *plumbing.Reference) (Tag, bool) {
	tag := Tag{Name: ref.Name().Short()}

	if obj, err := r.repo.TagObject(ref.Hash()); err == nil {
		commit, err := obj.Commit()
		if err != nil {
			return Tag{}, false
		}
		tag.Hash = commit.Hash.String()
		tag.Annotated = true
		return tag, true
	}

	if _, err := r.repo.CommitObject(ref.Hash()); err != nil {
		return Tag{}, false
	}
	tag.Hash = ref.Hash().String()
	return tag, true
}

// LatestTag finds the tag a release continues from.
//
// By default it returns the nearest tag reachable from HEAD, as
// "git describe --abbrev=0 --tags" does. With nonAnnotated set it considers
// every tag and returns the highest by semantic version, or the last by name
// when no tag parses. found is false when there is no candidate.
func (r *Repository) LatestTag(ctx context.Context, nonAnnotated bool, prefix string) (tag Tag, found bool, err error) {
	tags, err := r.Tags(ctx, prefix)
	if err != nil {
		return Tag{}, false, err
	}
	if len(tags) == 0 {
		r.logger.Debug("no tags found", "prefix", prefix)
		return Tag{}, false, nil
	}

	if nonAnnotated {
		tag = highestTag(tags)
	} else {
		tag, found, err = r.nearestTag(ctx, tags)
		if err != nil || !found {
			return Tag{}, false, err
		}
	}
	r.logger.Debug("latest tag", "tag", tag.Name, "annotated", tag.Annotated, "non_annotated_mode", nonAnnotated)
	return tag, true, nil
}

// FindTag returns the tag named name, or prefix+name.
func (r *Repository) FindTag(ctx context.Context, name, prefix string) (Tag, bool, error) {
	tags, err := r.Tags(ctx, "")
	if err != nil {
		return Tag{}, false, err
	}
	for _, candidate := range []string{name, prefix + name} {
		for _, t := range tags {
			if t.Name == candidate {
				t.Version = strings.TrimPrefix(t.Name, prefix)
				return t, true, nil
			}
		}
	}
	return Tag{}, false, nil
}

// versionedTag pairs a tag with its parsed version.
type versionedTag struct {
	tag     Tag
	version *semver.Version
}

func highestTag(tags []Tag) Tag {
	parsed := make([]versionedTag, 0, len(tags))
	for _, t := range tags {
		if v, err := semver.StrictNewVersion(strings.TrimPrefix(t.Version, "v")); err == nil {
			parsed = append(parsed, versionedTag{tag: t, version: v})
		}
	}
	if len(parsed) == 0 {
		return tags[len(tags)-1]
	}

	sort.SliceStable(parsed, func(i, j int) bool {
		return parsed[i].version.LessThan(parsed[j].version)
	})
	return parsed[len(parsed)-1].tag
}

// nearestTag walks history breadth-first from HEAD and returns the first
// tagged commit. Several tags on that commit resolve to the highest.
func (r *Repository) nearestTag(ctx context.Context, tags []Tag) (Tag, bool, error) {
	const op = "git.Repository.nearestTag"

	byCommit := make(map[plumbing.Hash][]Tag, len(tags))
	for _, t := range tags {
		h := plumbing.NewHash(t.Hash)
		byCommit[h] = append(byCommit[h], t)
	}

	head, err := r.repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return Tag{}, false, nil
		}
		return Tag{}, false, rperrors.GitWrap(err, op, "failed to get HEAD")
	}

	ctx, cancel := withLocalTimeout(ctx)
	defer cancel()

	seen := map[plumbing.Hash]bool{head.Hash(): true}
	queue := []plumbing.Hash{head.Hash()}
	for len(queue) > 0 {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Tag{}, false, rperrors.GitWrap(ctxErr, op, "operation canceled")
		}
		h := queue[0]
		queue = queue[1:]

		if candidates, ok := byCommit[h]; ok {
			return highestTag(candidates), true, nil
		}

		commit, err := r.repo.CommitObject(h)
		if err != nil {
			return Tag{}, false, rperrors.GitWrap(err, op, fmt.Sprintf("failed to read commit %s", h))
		}
		for _, parent := range commit.ParentHashes {
			if !seen[parent] {
				seen[parent] = true
				queue = append(queue, parent)
			}
		}
	}
	return Tag{}, false, nil
}

// CommitMessages returns the full messages of commits reachable from HEAD but
// not from since, newest first. An empty since returns the whole history and
// a repository without commits returns nothing.
func (r *Repository) CommitMessages(ctx context.Context, since string) ([]string, error) {
	const op = "git.Repository.CommitMessages"

	head, err := r.repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return nil, nil
		}
		return nil, rperrors.GitWrap(err, op, "failed to get HEAD")
	}

	ctx, cancel := withLocalTimeout(ctx)
	defer cancel()

	exclude := map[plumbing.Hash]bool{}
	if since != "" {
		from, err := r.repo.ResolveRevision(plumbing.Revision(since))
		if err != nil {
			return nil, rperrors.GitWrap(err, op, fmt.Sprintf("failed to resolve reference %s", since))
		}
		if err := r.walk(ctx, *from, func(c *object.Commit) error {
			exclude[c.Hash] = true
			return nil
		}); err != nil {
			return nil, rperrors.GitWrap(err, op, "failed to walk tagged history")
		}
	}

	var messages []string
	err = r.walk(ctx, head.Hash(), func(c *object.Commit) error {
		if !exclude[c.Hash] {
			messages = append(messages, strings.TrimRight(c.Message, "\n"))
		}
		return nil
	})
	if err != nil {
		return nil, rperrors.GitWrap(err, op, "failed to iterate commits")
	}
	return messages, nil
}

func (r *Repository) walk(ctx context.Context, from plumbing.Hash, visit func(*object.Commit) error) error {
	iter, err := r.repo.Log(&git.LogOptions{From: from, Order: git.LogOrderCommitterTime})
	if err != nil {
		return err
	}
	defer iter.Close()

	return iter.ForEach(func(c *object.Commit) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return visit(c)
	})
}
