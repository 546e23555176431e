// ABOUTME: mDNS service discovery package
// ABOUTME: Discover Unison servers and advertise this player on the LAN
// Package discovery provides mDNS discovery for the local network.
//
// A Manager can advertise this player (so servers and controllers find it)
// and browse for servers, which arrive on the Servers channel:
//
//	mgr := discovery.NewManager(discovery.Config{ServiceName: "living-room", Port: 8930})
//	mgr.Browse()
//	select {
//	case srv := <-mgr.Servers():
//	    fmt.Printf("found %s at %s:%d\n", srv.Name, srv.Host, srv.Port)
//	case <-time.After(10 * time.Second):
//	}
//	mgr.Stop()
package discovery
