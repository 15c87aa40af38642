// Package blackboard mirrors a running trialrun session into Redis so it can be
// followed live from another terminal.
//
// # Overview
//
// The CSV data file is the record of a session; the blackboard is a read-only view of
// the same trials for monitoring. Every appended row is also pushed here as a
// TrialEvent: stored on a per-session list and published on a per-session channel.
// Losing the blackboard never loses data.
//
// # Multi-Session Support
//
// All Redis keys and Pub/Sub channels are namespaced by session ID, so several
// testing rooms can share one Redis server.
//
// # Usage Example
//
//	client, err := blackboard.NewClient(&redis.Options{Addr: "localhost:6379"}, sessionID)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	err = client.PutSession(ctx, &blackboard.SessionInfo{
//		ID:          sessionID,
//		Experiment:  "dmts",
//		Participant: "p01",
//		Seed:        42,
//	})
//
//	sub, err := client.SubscribeTrialEvents(ctx)
//	for ev := range sub.Events() {
//		fmt.Println(ev.Block, ev.Trial, ev.Values)
//	}
package blackboard
