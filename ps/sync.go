package ps

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/config"
	"github.com/go-git/go-git/v6/plumbing"
	"github.com/go-git/go-git/v6/plumbing/transport"
	"github.com/go-git/go-git/v6/plumbing/transport/http"
	"github.com/go-git/go-git/v6/plumbing/transport/ssh"
)

const DefaultRemote = "origin"

// ErrDiverged is returned by Pull when local and remote history both have
// commits the other lacks.
var ErrDiverged = errors.New("local and remote history have diverged")

// Auth holds credentials for a remote. A KeyPath selects SSH, a Token
// selects HTTP token auth, and a Username selects HTTP basic auth.
type Auth struct {
	Token      string
	Username   string
	Password   string
	KeyPath    string
	Passphrase string
}

func (auth *Auth) method() (transport.AuthMethod, error) {
	switch {
	case auth == nil:
		return nil, nil
	case auth.KeyPath != "":
		keyPath := auth.KeyPath
		if keyPath == "~" || len(keyPath) > 1 && keyPath[:2] == "~/" {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, err
			}
			keyPath = filepath.Join(home, keyPath[1:])
		}
		return ssh.NewPublicKeysFromFile("git", keyPath, auth.Passphrase)
	case auth.Token != "":
		// any non-empty username works with token auth
		return &http.BasicAuth{Username: "git", Password: auth.Token}, nil
	case auth.Username != "":
		return &http.BasicAuth{Username: auth.Username, Password: auth.Password}, nil
	default:
		return nil, nil
	}
}

// Remote is a configured git remote.
type Remote struct {
	Name string
	URLs []string
}

// AddRemote adds a named remote to the repository.
func (p *Persistence) AddRemote(name, url string) error {
	if err := p.ensureInitialized(); err != nil {
		return err
	}

	if _, err := p.repo.CreateRemote(&config.RemoteConfig{Name: name, URLs: []string{url}}); err != nil {
		return fmt.Errorf("failed to add remote '%s': %w", name, err)
	}
	return nil
}

// Remotes lists the configured remotes.
func (p *Persistence) Remotes() ([]Remote, error) {
	if err := p.ensureInitialized(); err != nil {
		return nil, err
	}

	remotes, err := p.repo.Remotes()
	if err != nil {
		return nil, fmt.Errorf("failed to list remotes: %w", err)
	}

	result := make([]Remote, 0, len(remotes))
	for _, r := range remotes {
		cfg := r.Config()
		result = append(result, Remote{Name: cfg.Name, URLs: cfg.URLs})
	}
	return result, nil
}

// Push publishes the current branch to the remote.
func (p *Persistence) Push(remote string, auth *Auth) error {
	if err := p.ensureInitialized(); err != nil {
		return err
	}
	if remote == "" {
		remote = DefaultRemote
	}

	method, err := auth.method()
	if err != nil {
		return fmt.Errorf("failed to configure auth: %w", err)
	}

	p.RLock()
	defer p.RUnlock()

	branch := p.currentBranch()
	refSpec := config.RefSpec(fmt.Sprintf("%s:%s", branch, branch))

	err = p.repo.Push(&git.PushOptions{
		RemoteName: remote,
		RefSpecs:   []config.RefSpec{refSpec},
		Auth:       method,
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("failed to push to '%s': %w", remote, err)
	}
	return nil
}

// Pull fetches the remote and fast-forwards the current branch to it.
// Diverged history is refused with ErrDiverged.
func (p *Persistence) Pull(remote string, auth *Auth) error {
	if err := p.ensureInitialized(); err != nil {
		return err
	}
	if remote == "" {
		remote = DefaultRemote
	}

	method, err := auth.method()
	if err != nil {
		return fmt.Errorf("failed to configure auth: %w", err)
	}

	p.Lock()
	defer p.Unlock()

	err = p.repo.Fetch(&git.FetchOptions{RemoteName: remote, Auth: method})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("failed to fetch from '%s': %w", remote, err)
	}

	branch := p.currentBranch()
	remoteRef, err := p.repo.Reference(plumbing.NewRemoteReferenceName(remote, branch.Short()), true)
	if err != nil {
		return fmt.Errorf("remote '%s' has no branch %s: %w", remote, branch.Short(), err)
	}

	if localRef, err := p.repo.Reference(branch, true); err == nil {
		forward, err := p.isFastForward(localRef.Hash(), remoteRef.Hash())
		if err != nil {
			return err
		}
		if !forward {
			return nil
		}
	}

	if err := p.repo.Storer.SetReference(plumbing.NewHashReference(branch, remoteRef.Hash())); err != nil {
		return fmt.Errorf("failed to update %s: %w", branch.Short(), err)
	}
	return p.syncWorktree()
}

// isFastForward reports whether moving from local to remote only adds
// commits. It is false when local already contains remote.
func (p *Persistence) isFastForward(local, remote plumbing.Hash) (bool, error) {
	if local == remote {
		return false, nil
	}

	localCommit, err := p.repo.CommitObject(local)
	if err != nil {
		return false, err
	}
	remoteCommit, err := p.repo.CommitObject(remote)
	if err != nil {
		return false, err
	}

	ahead, err := localCommit.IsAncestor(remoteCommit)
	if err != nil {
		return false, err
	}
	if ahead {
		return true, nil
	}

	behind, err := remoteCommit.IsAncestor(localCommit)
	if err != nil {
		return false, err
	}
	if behind {
		return false, nil
	}
	return false, ErrDiverged
}

func (p *Persistence) currentBranch() plumbing.ReferenceName {
	head, err := p.repo.Storer.Reference(plumbing.HEAD)
	if err == nil && head.Type() == plumbing.SymbolicReference && head.Target().IsBranch() {
		return head.Target()
	}
	return plumbing.Master
}
