// Package resumable implements a client for the resumable-upload protocol
// popularized by resumable.js: files are split into fixed-size chunks, each
// chunk is probed with a GET (to discover whether the server already holds
// it) and then uploaded with a POST, and many chunks — possibly from many
// files — progress concurrently through a fixed-width worker pool.
//
// The three collaborating pieces are a per-chunk state machine (Chunk), a
// polling scheduler that hands the next ready chunk to an idle worker
// (Scheduler), and a small observer mechanism (Bus) that bubbles
// CHUNK_COMPLETED events up through File to the top-level Session.
//
// A minimal session looks like:
//
//	sess := resumable.New("https://example.com/upload",
//		resumable.WithConcurrency(4),
//		resumable.WithChunkSize(2<<20),
//	)
//	defer sess.Close()
//
//	sess.Register(resumable.FileCompleted, func(resumable.Signal) {
//		fmt.Println("a file finished")
//	})
//
//	if err := sess.AddFile("/path/to/report.pdf"); err != nil {
//		log.Fatal(err)
//	}
//
//	sess.WaitUntilComplete()
package resumable
