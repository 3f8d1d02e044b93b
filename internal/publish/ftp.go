package publish

import (
	"context"
	"io"
	"net"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ftpConn is the subset of *ftp.ServerConn used for uploads.
type ftpConn interface {
	Login(user, password string) error
	MakeDir(path string) error
	Stor(path string, r io.Reader) error
	Quit() error
}

type ftpDialer func(ctx context.Context, addr string, timeout time.Duration) (ftpConn, error)

func dialFTP(ctx context.Context, addr string, timeout time.Duration) (ftpConn, error) {
	conn, err := ftp.Dial(addr, ftp.DialWithTimeout(timeout), ftp.DialWithContext(ctx))
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// FTPOptions configures the FTP sink.
type FTPOptions struct {
	Addr     string
	User     string
	Password string
	Dir      string
	Timeout  time.Duration
}

// FTPSink uploads artifacts to an FTP server.
type FTPSink struct {
	opts FTPOptions
	dial ftpDialer
}

// NewFTPSink creates an FTPSink. A missing port defaults to 21 and an empty
// user logs in anonymously.
func NewFTPSink(opts FTPOptions) *FTPSink {
	if opts.Timeout == 0 {
		opts.Timeout = 10 * time.Second
	}
	if _, _, err := net.SplitHostPort(opts.Addr); err != nil {
		opts.Addr = net.JoinHostPort(opts.Addr, "21")
	}
	if opts.User == "" {
		opts.User = "anonymous"
		if opts.Password == "" {
			opts.Password = "anonymous@"
		}
	}
	return &FTPSink{opts: opts, dial: dialFTP}
}

func (s *FTPSink) Name() string { return "ftp" }

// Publish uploads the artifact under Dir using its local base name.
func (s *FTPSink) Publish(ctx context.Context, a Artifact) error {
	conn, err := s.dial(ctx, s.opts.Addr, s.opts.Timeout)
	if err != nil {
		return eris.Wrap(err, "ftp dial")
	}
	defer func() { _ = conn.Quit() }()

	if err := conn.Login(s.opts.User, s.opts.Password); err != nil {
		return eris.Wrap(err, "ftp login")
	}

	dir := strings.TrimSuffix(s.opts.Dir, "/")
	if dir != "" {
		// Errors here usually mean the directory exists.
		if err := conn.MakeDir(dir); err != nil {
			zap.L().Debug("ftp: make dir", zap.String("dir", dir), zap.Error(err))
		}
	}

	remote := path.Join(dir, filepath.Base(a.Path))
	if err := conn.Stor(remote, strings.NewReader(a.Content)); err != nil {
		return eris.Wrapf(err, "ftp store %s", remote)
	}

	zap.L().Debug("ftp: uploaded", zap.String("addr", s.opts.Addr), zap.String("path", remote))
	return nil
}
