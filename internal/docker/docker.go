package docker

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/network"
	dockerclient "github.com/docker/docker/client"
	"github.com/docker/docker/errdefs"
	"github.com/docker/docker/pkg/stdcopy"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

const (
	stopTimeout      = 10 // seconds
	pullTimeout      = 5 * time.Minute
	startStopTimeout = 30 * time.Second
	listTimeout      = 10 * time.Second
)

// ContainerView is the part of a container record the panel reads.
type ContainerView struct {
	ID      string    `json:"id" yaml:"id"`
	Names   []string  `json:"names" yaml:"names"`
	Image   string    `json:"image" yaml:"image"`
	Command string    `json:"command" yaml:"command"`
	Created time.Time `json:"created" yaml:"created"`
	State   string    `json:"state" yaml:"state"`
	Status  string    `json:"status" yaml:"status"`
}

// Name returns the first display name without Docker's leading slash.
func (c ContainerView) Name() string {
	if len(c.Names) == 0 {
		return ""
	}
	return strings.TrimPrefix(c.Names[0], "/")
}

// ShortID returns the 12 character form of the container ID.
func (c ContainerView) ShortID() string {
	if len(c.ID) > 12 {
		return c.ID[:12]
	}
	return c.ID
}

// ListOptions filters ListContainers.
type ListOptions struct {
	RunningOnly bool
}

// LogOptions selects which part of a log stream is read.
type LogOptions struct {
	// Follow keeps the stream open for new output.
	Follow bool
	// Tail limits the backlog to the newest lines; 0 means all.
	Tail int
}

func (o LogOptions) tail() string {
	if o.Tail <= 0 {
		return "all"
	}
	return strconv.Itoa(o.Tail)
}

// LogHandlers receive a container's log stream line by line. Any handler may be nil.
type LogHandlers struct {
	OnStdout func(line string)
	OnStderr func(line string)
	OnError  func(err error)
	OnClose  func()
}

// Engine is the container manager the panel drives. It is an interface so the
// panel, CLI and server can be tested without a real Docker daemon.
type Engine interface {
	ListContainers(ctx context.Context, opts ListOptions) ([]ContainerView, error)
	Run(ctx context.Context, args []string) (string, error)
	Stop(ctx context.Context, name string) error
	StreamLogs(ctx context.Context, name string, opts LogOptions, h LogHandlers) error
}

// dockerAPI is the subset of the Docker SDK client we use, enabling test mocks.
type dockerAPI interface {
	Ping(ctx context.Context) (types.Ping, error)
	ImagePull(ctx context.Context, ref string, options image.PullOptions) (io.ReadCloser, error)
	ContainerCreate(ctx context.Context, config *container.Config, hostConfig *container.HostConfig, networkingConfig *network.NetworkingConfig, platform *ocispec.Platform, containerName string) (container.CreateResponse, error)
	ContainerStart(ctx context.Context, containerID string, options container.StartOptions) error
	ContainerStop(ctx context.Context, containerID string, options container.StopOptions) error
	ContainerList(ctx context.Context, options container.ListOptions) ([]types.Container, error)
	ContainerLogs(ctx context.Context, container string, options container.LogsOptions) (io.ReadCloser, error)
}

// Client talks to the Docker Engine API.
type Client struct {
	cli dockerAPI
}

// Verify Client implements Engine at compile time.
var _ Engine = (*Client)(nil)

// NewClient creates a Docker API client from the environment and verifies connectivity.
func NewClient(ctx context.Context) (*Client, error) {
	cli, err := dockerclient.NewClientWithOpts(dockerclient.FromEnv, dockerclient.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("docker: failed to create client: %w", err)
	}

	if _, err := cli.Ping(ctx); err != nil {
		return nil, fmt.Errorf("docker: daemon is not running (is Docker started?): %w", err)
	}

	return &Client{cli: cli}, nil
}

// newClientWithAPI creates a Client with a provided dockerAPI (for testing).
func newClientWithAPI(api dockerAPI) *Client {
	return &Client{cli: api}
}

// ListContainers returns containers in the order the engine reports them.
func (c *Client) ListContainers(ctx context.Context, opts ListOptions) ([]ContainerView, error) {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	f := filters.NewArgs()
	if opts.RunningOnly {
		f.Add("status", "running")
	}

	containers, err := c.cli.ContainerList(ctx, container.ListOptions{All: !opts.RunningOnly, Filters: f})
	if err != nil {
		return nil, fmt.Errorf("docker: failed to list containers: %w", err)
	}

	views := make([]ContainerView, 0, len(containers))
	for _, ctr := range containers {
		views = append(views, ContainerView{
			ID:      ctr.ID,
			Names:   ctr.Names,
			Image:   ctr.Image,
			Command: ctr.Command,
			Created: time.Unix(ctr.Created, 0).UTC(),
			State:   ctr.State,
			Status:  ctr.Status,
		})
	}
	return views, nil
}

// Run creates and starts a container from a docker-run style argument vector.
// The image is pulled first when it is not present locally.
func (c *Client) Run(ctx context.Context, args []string) (string, error) {
	spec, err := ParseRunArgs(args)
	if err != nil {
		return "", fmt.Errorf("docker: %w", err)
	}

	config := &container.Config{
		Image: spec.Image,
		Cmd:   spec.Cmd,
		Env:   spec.Env,
	}
	hostConfig := &container.HostConfig{
		AutoRemove: spec.AutoRemove,
		Binds:      spec.Binds,
	}

	resp, err := c.create(ctx, spec, config, hostConfig)
	if errdefs.IsNotFound(err) {
		slog.Info("pulling image", "image", spec.Image)
		if perr := c.pull(ctx, spec.Image); perr != nil {
			return "", perr
		}
		resp, err = c.create(ctx, spec, config, hostConfig)
	}
	if err != nil {
		return "", fmt.Errorf("docker: failed to create container %s: %w", spec.Name, err)
	}

	startCtx, cancel := context.WithTimeout(ctx, startStopTimeout)
	defer cancel()
	if err := c.cli.ContainerStart(startCtx, resp.ID, container.StartOptions{}); err != nil {
		return "", fmt.Errorf("docker: failed to start container %s: %w", spec.Name, err)
	}

	return resp.ID, nil
}

func (c *Client) create(ctx context.Context, spec RunSpec, config *container.Config, hostConfig *container.HostConfig) (container.CreateResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, startStopTimeout)
	defer cancel()
	return c.cli.ContainerCreate(ctx, config, hostConfig, nil, nil, spec.Name)
}

func (c *Client) pull(ctx context.Context, ref string) error {
	ctx, cancel := context.WithTimeout(ctx, pullTimeout)
	defer cancel()

	rc, err := c.cli.ImagePull(ctx, ref, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("docker: failed to pull %s: %w", ref, err)
	}
	defer func() { _ = rc.Close() }()

	// The pull only completes once the progress stream has been drained.
	if _, err := io.Copy(io.Discard, rc); err != nil {
		return fmt.Errorf("docker: failed to read pull output for %s: %w", ref, err)
	}
	return nil
}

// Stop asks the engine to stop the named container.
func (c *Client) Stop(ctx context.Context, name string) error {
	ctx, cancel := context.WithTimeout(ctx, startStopTimeout)
	defer cancel()

	timeout := stopTimeout
	if err := c.cli.ContainerStop(ctx, name, container.StopOptions{Timeout: &timeout}); err != nil {
		return fmt.Errorf("docker: failed to stop %s: %w", name, err)
	}
	return nil
}

// StreamLogs reads the named container's logs and delivers them line by
// line. It blocks until the stream ends or ctx is cancelled; OnClose always
// runs last.
func (c *Client) StreamLogs(ctx context.Context, name string, opts LogOptions, h LogHandlers) error {
	if h.OnClose != nil {
		defer h.OnClose()
	}

	logReader, err := c.cli.ContainerLogs(ctx, name, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Follow:     opts.Follow,
		Tail:       opts.tail(),
	})
	if err != nil {
		err = fmt.Errorf("docker: failed to get logs for %s: %w", name, err)
		if h.OnError != nil {
			h.OnError(err)
		}
		return err
	}
	// Closing the reader unblocks StdCopy when ctx is cancelled.
	stop := context.AfterFunc(ctx, func() { _ = logReader.Close() })
	defer stop()
	defer func() { _ = logReader.Close() }()

	// Docker multiplexes stdout/stderr with an 8-byte header per frame.
	outR, outW := io.Pipe()
	errR, errW := io.Pipe()

	var wg sync.WaitGroup
	wg.Add(2)
	go scanLines(&wg, outR, h.OnStdout)
	go scanLines(&wg, errR, h.OnStderr)

	_, copyErr := stdcopy.StdCopy(outW, errW, logReader)
	_ = outW.Close()
	_ = errW.Close()
	wg.Wait()

	if copyErr != nil && ctx.Err() == nil {
		copyErr = fmt.Errorf("docker: log stream for %s failed: %w", name, copyErr)
		if h.OnError != nil {
			h.OnError(copyErr)
		}
		return copyErr
	}
	return nil
}

func scanLines(wg *sync.WaitGroup, r io.ReadCloser, fn func(string)) {
	defer wg.Done()
	defer func() { _ = r.Close() }()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		if fn != nil {
			fn(scanner.Text())
		}
	}
	// Keep draining so the writer side never blocks on a long line.
	_, _ = io.Copy(io.Discard, r)
}
