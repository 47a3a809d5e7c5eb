package main

import (
	"bufio"
	"io"
	"os"

	"github.com/juju/errors"
	"github.com/juju/loggo"

	"skabillium/memo/cmd/resp"
)

var walLogger = loggo.GetLogger("memo.wal")

// WAL appends mutating commands to a file as RESP arrays, the same
// encoding clients send, so replay is just reading requests back.
type WAL struct {
	path string
	ch   chan []string
	done chan struct{}
	file *os.File
	w    *bufio.Writer
}

func OpenWAL(path string) (*WAL, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0644)
	if err != nil {
		return nil, errors.Annotatef(err, "opening write ahead log %q", path)
	}
	return &WAL{
		path: path,
		ch:   make(chan []string, 256),
		done: make(chan struct{}),
		file: file,
		w:    bufio.NewWriter(file),
	}, nil
}

// Append queues a command for writing. Commands are written in the order
// they are appended.
func (w *WAL) Append(args []string) {
	select {
	case w.ch <- args:
	case <-w.done:
		walLogger.Errorf("write ahead log is closed, dropping %q", args[0])
	}
}

// loop writes queued commands until stop is closed, then writes what is
// still queued and closes the file. Nothing may be appended once stop is
// closed.
func (w *WAL) loop(stop <-chan struct{}) error {
	defer close(w.done)
	defer w.file.Close()
	for {
		select {
		case args := <-w.ch:
			if err := w.write(args); err != nil {
				return errors.Trace(err)
			}
			// Flush once the burst is over.
			if len(w.ch) == 0 {
				if err := w.w.Flush(); err != nil {
					return errors.Annotate(err, "flushing write ahead log")
				}
			}
		case <-stop:
			for {
				select {
				case args := <-w.ch:
					if err := w.write(args); err != nil {
						return errors.Trace(err)
					}
				default:
					return errors.Annotate(w.w.Flush(), "flushing write ahead log")
				}
			}
		}
	}
}

func (w *WAL) write(args []string) error {
	_, err := w.w.WriteString(resp.SerializeCommand(args))
	return errors.Annotate(err, "writing write ahead log")
}

// replayWAL applies every command in the log at path and returns how many
// were applied. A missing log is empty. A torn final record is dropped.
func replayWAL(path string, apply func(*Command) error) (int, error) {
	file, err := os.Open(path)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Annotatef(err, "opening write ahead log %q", path)
	}
	defer file.Close()

	r := bufio.NewReader(file)
	applied := 0
	for {
		v, err := resp.Read(r)
		if err == io.EOF {
			return applied, nil
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			walLogger.Warningf("dropping torn record at the end of %q", path)
			return applied, nil
		}
		if err != nil {
			return applied, errors.Annotatef(err, "reading record %d", applied+1)
		}

		args, err := requestArgs(v)
		if err != nil {
			return applied, errors.Annotatef(err, "reading record %d", applied+1)
		}
		if args == nil {
			continue
		}
		cmd, err := ParseArgs(args)
		if err != nil {
			return applied, errors.Annotatef(err, "parsing record %d", applied+1)
		}
		if err := apply(cmd); err != nil {
			return applied, errors.Annotatef(err, "applying record %d", applied+1)
		}
		applied++
	}
}
