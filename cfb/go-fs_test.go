package cfb_test

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/spf13/afero"

	"github.com/aligator/gomsg/cfb"
)

// TestGoFS tests the own compatibility layer to io/fs.
func TestGoFS(t *testing.T) {
	gofs, err := cfb.NewGoFS(bytes.NewReader(buildPlainContainer()))
	if err != nil {
		t.Fatalf("NewGoFS() error = %v", err)
	}
	if err := fstest.TestFS(gofs, "story.txt", "docs/nested.txt", "empty.txt"); err != nil {
		t.Fatal(err)
	}
}

// TestIOFS tests the use with the afero.IOFS compatibility layer to io/fs.
func TestIOFS(t *testing.T) {
	iofs, err := cfb.NewIOFS(bytes.NewReader(buildPlainContainer()))
	if err != nil {
		t.Fatalf("NewIOFS() error = %v", err)
	}
	if err := fstest.TestFS(iofs, "story.txt", "docs/nested.txt", "empty.txt"); err != nil {
		t.Fatal(err)
	}
}

func TestGoFs_Open(t *testing.T) {
	gofs, err := cfb.NewGoFS(bytes.NewReader(buildPlainContainer()))
	if err != nil {
		t.Fatalf("NewGoFS() error = %v", err)
	}

	tests := []struct {
		name    string
		path    string
		want    string
		wantErr error
	}{
		{
			name: "a stream",
			path: "story.txt",
			want: "Hello World!",
		},
		{
			name: "the root is spelled . in io/fs",
			path: ".",
		},
		{
			name:    "a leading slash is invalid in io/fs",
			path:    "/story.txt",
			wantErr: fs.ErrInvalid,
		},
		{
			name:    "a rooted path is invalid in io/fs",
			path:    "../story.txt",
			wantErr: fs.ErrInvalid,
		},
		{
			name:    "a missing stream",
			path:    "missing.txt",
			wantErr: fs.ErrNotExist,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			file, err := gofs.Open(tt.path)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("GoFs.Open() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr != nil {
				return
			}
			defer file.Close()

			info, err := file.Stat()
			if err != nil {
				t.Errorf("GoFile.Stat() error = %v", err)
				return
			}
			if info.IsDir() {
				return
			}

			content, err := io.ReadAll(file)
			if err != nil {
				t.Errorf("io.ReadAll() error = %v", err)
				return
			}
			if string(content) != tt.want {
				t.Errorf("io.ReadAll() = %q, want %q", content, tt.want)
			}
		})
	}
}

func TestNewGoFS(t *testing.T) {
	type args struct {
		reader io.ReadSeeker
	}
	tests := []struct {
		name string
		args args
		// Do not expect something special. Should be enough to check for
		// non-nil, a valid GoFs is hard to compare with DeepEqual.
		wantNotNil bool
		wantErr    bool
	}{
		{
			name: "a well formed container",
			args: args{
				reader: bytes.NewReader(buildPlainContainer()),
			},
			wantNotNil: true,
			wantErr:    false,
		},
		{
			name: "no compound file",
			args: args{
				reader: strings.NewReader("This is no compound file"),
			},
			wantNotNil: false,
			wantErr:    true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := cfb.NewGoFS(tt.args.reader)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewGoFS() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if (got != nil) != tt.wantNotNil {
				t.Errorf("NewGoFS() = %v, wantNotNil %v", got, tt.wantNotNil)
			}
		})
	}
}

func TestNewIOFS(t *testing.T) {
	type args struct {
		reader io.ReadSeeker
	}
	tests := []struct {
		name         string
		args         args
		wantNotEmpty bool
		wantErr      bool
	}{
		{
			name: "a well formed container",
			args: args{
				reader: bytes.NewReader(buildPlainContainer()),
			},
			wantNotEmpty: true,
			wantErr:      false,
		},
		{
			name: "no compound file",
			args: args{
				reader: strings.NewReader("This is no compound file"),
			},
			wantNotEmpty: false,
			wantErr:      true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := cfb.NewIOFS(tt.args.reader)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewIOFS() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if (got != (afero.IOFS{})) != tt.wantNotEmpty {
				t.Errorf("NewIOFS() = %v, wantNotEmpty %v", got, tt.wantNotEmpty)
			}
		})
	}
}

func TestNewGoFSSkipChecks(t *testing.T) {
	valid := buildPlainContainer()
	oddByteOrder := append([]byte(nil), valid...)
	oddByteOrder[28] = 0

	type args struct {
		reader io.ReadSeeker
	}
	tests := []struct {
		name       string
		args       args
		wantNotNil bool
		wantErr    bool
	}{
		{
			name: "a well formed container",
			args: args{
				reader: bytes.NewReader(valid),
			},
			wantNotNil: true,
			wantErr:    false,
		},
		{
			name: "no compound file",
			args: args{
				reader: strings.NewReader("This is no compound file"),
			},
			wantNotNil: false,
			wantErr:    true,
		},
		{
			name: "a strange byte order mark is waved through",
			args: args{
				reader: bytes.NewReader(oddByteOrder),
			},
			wantNotNil: true,
			wantErr:    false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := cfb.NewGoFSSkipChecks(tt.args.reader)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewGoFSSkipChecks() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if (got != nil) != tt.wantNotNil {
				t.Errorf("NewGoFSSkipChecks() = %v, wantNotNil %v", got, tt.wantNotNil)
			}
		})
	}
}

func TestNewIOFSSkipChecks(t *testing.T) {
	valid := buildPlainContainer()
	oddByteOrder := append([]byte(nil), valid...)
	oddByteOrder[28] = 0

	type args struct {
		reader io.ReadSeeker
	}
	tests := []struct {
		name         string
		args         args
		wantNotEmpty bool
		wantErr      bool
	}{
		{
			name: "a well formed container",
			args: args{
				reader: bytes.NewReader(valid),
			},
			wantNotEmpty: true,
			wantErr:      false,
		},
		{
			name: "no compound file",
			args: args{
				reader: strings.NewReader("This is no compound file"),
			},
			wantNotEmpty: false,
			wantErr:      true,
		},
		{
			name: "a strange byte order mark is waved through",
			args: args{
				reader: bytes.NewReader(oddByteOrder),
			},
			wantNotEmpty: true,
			wantErr:      false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := cfb.NewIOFSSkipChecks(tt.args.reader)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewIOFSSkipChecks() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if (got != (afero.IOFS{})) != tt.wantNotEmpty {
				t.Errorf("NewIOFSSkipChecks() = %v, wantNotEmpty %v", got, tt.wantNotEmpty)
			}
		})
	}
}
