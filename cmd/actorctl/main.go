// Command actorctl is a demo CLI driving one actor coordinator: put/get/
// delete against its key-value space, alarm arming, gate/commit status, and
// a small streaming-trace session, plus an introspection HTTP server.
package main

import "github.com/daviddao/actorkv/cmd/actorctl/cmd"

func main() {
	cmd.Execute()
}
