// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

// Package remote moves a lazy sequence between processes, element by
// element.
//
// The protocol is strict request/reply: the receiving side asks for
// the next element and the sending side answers with exactly one frame,
// so backpressure is inherent and elements arrive in source order.
// Values are serialized with [encoding/gob]; element types must
// therefore be gob-encodable.
package remote

import (
	"bufio"
	"context"
	"encoding/gob"
	"errors"
	"io"
	"iter"
	"net"

	"golang.org/x/sync/errgroup"
)

// frame is one reply on the wire. Done is set on the final frame,
// which carries no value.
type frame[T any] struct {
	Value T
	Done  bool
}

// Send serves the elements of src to a single receiver connecting to
// the listener. It blocks until the source is exhausted and the
// end-of-stream frame has been delivered, the receiver disconnects, or
// the context is canceled. The source is pulled lazily, one element
// per request.
func Send[T any](ctx context.Context, lis net.Listener, src iter.Seq[T]) error {
	conns := make(chan net.Conn, 1)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		// Releases the watcher goroutine on a clean finish as well.
		defer cancel()
		conn, err := lis.Accept()
		if err != nil {
			return err
		}
		conns <- conn
		defer conn.Close()
		return serve(conn, src)
	})

	// Unblock Accept and any pending read when the context ends,
	// whether by cancellation or because serving finished.
	g.Go(func() error {
		<-ctx.Done()
		_ = lis.Close()
		select {
		case conn := <-conns:
			_ = conn.Close()
		default:
		}
		return nil
	})

	return g.Wait()
}

// serve answers one request per upstream element.
func serve[T any](conn net.Conn, src iter.Seq[T]) error {
	next, stop := iter.Pull(src)
	defer stop()

	requests := bufio.NewReader(conn)
	enc := gob.NewEncoder(conn)
	for {
		if _, err := requests.ReadByte(); err != nil {
			// A receiver that walks away mid-stream is not an error on
			// this side.
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		elem, ok := next()
		if !ok {
			return enc.Encode(frame[T]{Done: true})
		}
		if err := enc.Encode(frame[T]{Value: elem}); err != nil {
			return err
		}
	}
}

// Receive connects to a sender at addr and returns the transported
// sequence. The connection is not opened until the caller begins
// ranging; each pull requests one element. Transport failures are
// yielded as the final element's error.
func Receive[T any](ctx context.Context, addr string) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		var d net.Dialer
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			yield(zero, err)
			return
		}
		defer conn.Close()

		// Unblock reads if the context ends mid-stream.
		finished := make(chan struct{})
		defer close(finished)
		go func() {
			select {
			case <-ctx.Done():
				_ = conn.Close()
			case <-finished:
			}
		}()

		dec := gob.NewDecoder(conn)
		for {
			if _, err := conn.Write([]byte{'n'}); err != nil {
				yield(zero, err)
				return
			}
			var f frame[T]
			if err := dec.Decode(&f); err != nil {
				yield(zero, err)
				return
			}
			if f.Done {
				return
			}
			if !yield(f.Value, nil) {
				return
			}
		}
	}
}
