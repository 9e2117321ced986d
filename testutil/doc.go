// Package testutil provides shared helpers for element and pipeline tests.
//
// # Overview
//
// MockNATSClient is an in-memory stand-in for natsclient.Client covering
// the calls the NATS elements make (Publish, PublishToStream, Subscribe).
// Published messages are stored per subject and delivered synchronously to
// matching subscriptions, so no NATS server is needed.
//
// Recorder is a standalone sink pad that keeps every buffer pushed into it
// and notes EOS. Feeder is a standalone source pad for pushing buffers into
// an element's sink pad. Both link to element pads with pad.Link.
//
// PipelineBuilder assembles a config.PipelineConfig fluently, and the data
// helpers provide sample log lines and temporary input files.
//
// # Usage
//
//	rec := testutil.NewRecorder()
//	require.Equal(t, pad.LinkOK, pad.Link(src.Pad("src"), rec.Pad()))
//	require.NoError(t, src.Start(ctx))
//	rec.WaitForCount(t, 10, time.Second)
package testutil
