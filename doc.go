// Package lmstfy is a client for the lmstfy job queue service.
//
// lmstfy stores opaque byte payloads in named queues inside a namespace.
// A consumed job is reserved for a time-to-run (TTR) window and must be
// acked before the window lapses, otherwise it is redelivered. Jobs whose
// tries run out move to the queue's dead letter, where they can be peeked
// or respawned.
//
// The package has two primary components:
//
//   - [Client]: publish, consume, ack and inspect jobs, query queue sizes
//     and manage dead letters.
//   - [Worker]: consume from several queues with strict priority, run a
//     composable middleware chain and ack on success.
//
// # Quick Start
//
// Publish a job:
//
//	client, err := lmstfy.NewClient("127.0.0.1:7777", "test-ns", token)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	jobID, err := client.Publish(ctx, "emails", []byte("hello"), 0, 3, 0)
//
// Consume and ack it:
//
//	job, err := client.Consume(ctx, "emails", 30, 10)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if job != nil {
//	    // process job.Data...
//	    err = client.Ack(ctx, "emails", job.ID)
//	}
//
// A nil job with a nil error means no job became ready within the timeout.
//
// # Errors
//
// Every operation returns *[Error]. Use [IsParameterError],
// [IsProtocolError] and [IsTransportError], or errors.Is with the
// sentinel errors, to tell the kinds apart.
package lmstfy
