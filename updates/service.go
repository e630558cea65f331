package updates

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/ProReality/ClassiCubeLauncher/config"
	"github.com/ProReality/ClassiCubeLauncher/digest"
	"github.com/ProReality/ClassiCubeLauncher/download"
	"github.com/ProReality/ClassiCubeLauncher/install"
	"github.com/ProReality/ClassiCubeLauncher/layout"
	"github.com/ProReality/ClassiCubeLauncher/unpack"
	"github.com/ProReality/ClassiCubeLauncher/updates_api"
)

// UpdateService keeps the client artifact in the launcher directory current
type UpdateService interface {
	// CheckAndUpdate downloads and installs the artifact when the gate says so.
	// It reports whether a new artifact was installed.
	CheckAndUpdate(ctx context.Context) (bool, error)

	// Check runs the gate only, nothing is downloaded
	Check(ctx context.Context) (*CheckResult, error)

	// Status describes the installed artifact without touching the network
	Status() (*Status, error)
}

// Status is what is known locally about the installed artifact
type Status struct {
	ArtifactPath string
	Exists       bool
	Size         int64
	Local        digest.Value
	Receipt      *install.Receipt
}

type serviceImpl struct {
	client     config.ClientConfig
	resolver   *layout.Resolver
	downloader *download.Downloader
	fetcher    *HashFetcher
	pipeline   *unpack.Pipeline
	logger     *log.Logger
	now        func() time.Time

	// one pipeline per artifact at a time
	mu sync.Mutex
}

type Option func(*serviceImpl)

func WithLogger(logger *log.Logger) Option {
	return func(s *serviceImpl) {
		s.logger = logger
	}
}

func WithResolver(resolver *layout.Resolver) Option {
	return func(s *serviceImpl) {
		s.resolver = resolver
	}
}

func WithCodecs(codecs *unpack.Codecs) Option {
	return func(s *serviceImpl) {
		s.pipeline = unpack.NewPipeline(codecs)
	}
}

func WithHTTPClient(client *http.Client) Option {
	return func(s *serviceImpl) {
		s.downloader.HTTPClient = client
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *serviceImpl) {
		s.now = now
	}
}

func NewUpdateService(cfg config.Config, opts ...Option) UpdateService {
	downloader := download.NewDownloader(cfg.HTTP().UserAgent())
	s := &serviceImpl{
		client:     cfg.Client(),
		resolver:   layout.NewResolver(),
		downloader: downloader,
		fetcher:    NewHashFetcher(downloader, cfg),
		pipeline:   unpack.NewPipeline(unpack.DefaultCodecs()),
		logger:     log.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *serviceImpl) artifactPath() (string, error) {
	dir, err := s.resolver.LauncherDir()
	if err != nil {
		return "", err
	}
	return layout.ArtifactFile(dir, s.client.Name()), nil
}

func (s *serviceImpl) Check(ctx context.Context) (*CheckResult, error) {
	target, err := s.artifactPath()
	if err != nil {
		return nil, err
	}
	return s.check(ctx, target)
}

func (s *serviceImpl) check(ctx context.Context, target string) (*CheckResult, error) {
	result := &CheckResult{ArtifactPath: target}

	if _, err := os.Stat(target); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, updates_api.IOError("inspect artifact", target, err)
		}
		result.Update = true
		result.Reason = ReasonMissing
		s.logger.Info("Client artifact is missing, update required", "path", target)
		return result, nil
	}

	local, err := digest.ComputeFile(s.client.Digest(), target)
	if err != nil {
		return nil, err
	}
	result.Local = local

	remote, hashErr := s.fetcher.FetchRemoteDigest(ctx, s.client.HashURL())
	if hashErr != nil && ctx.Err() != nil {
		return nil, ctx.Err()
	}
	result.Remote = remote
	result.HashErr = hashErr
	result.Update, result.Reason = decide(local, remote, hashErr)

	switch result.Reason {
	case ReasonHashFailed:
		s.logger.Warn("Remote hash unavailable, keeping installed client", "url", s.client.HashURL(), "err", hashErr)
	case ReasonUpToDate:
		s.logger.Info("Client is up to date", "digest", local)
	default:
		s.logger.Info("Client hash changed, update required", "local", local, "remote", remote)
	}
	return result, nil
}

func (s *serviceImpl) CheckAndUpdate(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	target, err := s.artifactPath()
	if err != nil {
		return false, err
	}

	s.cleanup(target)

	result, err := s.check(ctx, target)
	if err != nil {
		return false, err
	}
	if !result.Update {
		return false, nil
	}

	if err := s.update(ctx, target, result.Remote); err != nil {
		return false, err
	}
	return true, nil
}

func (s *serviceImpl) update(ctx context.Context, target string, advertised digest.Value) error {
	dir := filepath.Dir(target)
	name := s.client.Name()
	url := s.client.DownloadURL()

	tmp, err := os.CreateTemp(dir, layout.DownloadPattern(name))
	if err != nil {
		return updates_api.IOError("create download file", dir, err)
	}
	downloaded := tmp.Name()
	_ = tmp.Close()

	s.logger.Info("Downloading client", "url", url)
	size, err := s.downloader.Download(ctx, url, downloaded)
	if err != nil {
		return err
	}
	s.logger.Debug("Download finished", "bytes", size, "file", downloaded)

	processed, err := s.pipeline.Process(ctx, downloaded, url, name)
	if err != nil {
		return err
	}
	final := processed.FinalFile()
	s.logger.Debug("Download processed", "result", processed)

	installed, err := digest.ComputeFile(s.client.Digest(), final)
	if err != nil {
		_ = os.Remove(final)
		return err
	}
	if advertised != "" && !installed.Equal(advertised) {
		s.logger.Warn("Downloaded client does not match the advertised hash", "advertised", advertised, "actual", installed)
	}

	info, err := os.Stat(final)
	if err != nil {
		_ = os.Remove(final)
		return updates_api.IOError("inspect processed download", final, err)
	}

	if err := install.Install(final, target); err != nil {
		return err
	}
	s.logger.Info("Client installed", "path", target, "digest", installed)

	receipt := &install.Receipt{
		Digest:      installed.String(),
		Algorithm:   string(s.client.Digest()),
		SourceURL:   url,
		Stages:      processed.Stages(),
		Size:        info.Size(),
		InstalledAt: s.now().UTC(),
	}
	if err := install.WriteReceipt(target, receipt); err != nil {
		s.logger.Warn("Failed to write install receipt", "err", err)
	}
	return nil
}

// cleanup finishes an interrupted install and removes temp files of crashed runs
func (s *serviceImpl) cleanup(target string) {
	if moved, err := install.Recover(target); err != nil {
		s.logger.Warn("Failed to recover interrupted install", "err", err)
	} else if moved {
		s.logger.Info("Recovered interrupted install", "path", target)
	}

	for _, pattern := range layout.OrphanGlobs(filepath.Dir(target), s.client.Name()) {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			continue
		}
		for _, orphan := range matches {
			if err := os.Remove(orphan); err != nil {
				s.logger.Warn("Failed to remove leftover file", "path", orphan, "err", err)
				continue
			}
			s.logger.Debug("Removed leftover file", "path", orphan)
		}
	}
}

func (s *serviceImpl) Status() (*Status, error) {
	target, err := s.artifactPath()
	if err != nil {
		return nil, err
	}

	status := &Status{ArtifactPath: target}
	info, err := os.Stat(target)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, updates_api.IOError("inspect artifact", target, err)
		}
		return status, nil
	}
	status.Exists = true
	status.Size = info.Size()

	if status.Local, err = digest.ComputeFile(s.client.Digest(), target); err != nil {
		return nil, err
	}

	receipt, err := install.ReadReceipt(target)
	if err != nil {
		s.logger.Warn("Ignoring unreadable install receipt", "err", err)
	}
	status.Receipt = receipt
	return status, nil
}

func (s *Status) String() string {
	if !s.Exists {
		return fmt.Sprintf("%s is not installed", s.ArtifactPath)
	}
	return fmt.Sprintf("%s (%d bytes, %s)", s.ArtifactPath, s.Size, s.Local)
}
