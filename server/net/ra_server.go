package net

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	getty "github.com/AlexStocks/getty/transport"
	gxnet "github.com/AlexStocks/goext/net"
	log "github.com/AlexStocks/log4go"
	gxsync "github.com/dubbogo/gost/sync"

	"github.com/xraengine/xra-server/server/conf"
	"github.com/xraengine/xra-server/server/dispatcher"
)

const (
	maxQueryLen  = 64 * 1024
	sessionWQLen = 64
	cronPeriodMs = 60 * 1000
	sessionName  = "ra-session"
)

// RAServer exposes the query dispatcher over TCP: one newline-
// terminated command per packet, the result text back. All sessions
// share one dispatcher, which serializes their queries.
type RAServer struct {
	conf       *conf.Cfg
	serverList []getty.Server
	taskPool   gxsync.GenericTaskPool
	handler    *RAMessageHandler
}

// NewRAServer builds a server over an existing dispatcher.
func NewRAServer(cfg *conf.Cfg, d *dispatcher.QueryDispatcher) *RAServer {
	return &RAServer{
		conf:     cfg,
		taskPool: gxsync.NewTaskPoolSimple(0),
		handler:  NewRAMessageHandler(cfg, d),
	}
}

// Start listens, serves sessions and blocks until a termination
// signal.
func (srv *RAServer) Start() {
	srv.initServer()
	log.Info("query server listening on %s:%d", srv.conf.BindAddress, srv.conf.Port)
	srv.initSignal()
}

func (srv *RAServer) initServer() {
	addr := gxnet.HostAddress(srv.conf.BindAddress, srv.conf.Port)
	server := getty.NewTCPServer(getty.WithLocalAddress(addr))
	server.RunEventLoop(func(session getty.Session) error {
		tcpConn, ok := session.Conn().(*net.TCPConn)
		if !ok {
			return fmt.Errorf("%s is not a tcp connection", session.Stat())
		}
		tcpConn.SetNoDelay(true)
		tcpConn.SetKeepAlive(true)

		session.SetName(sessionName)
		session.SetMaxMsgLen(maxQueryLen)
		session.SetPkgHandler(lineProtocolHandler)
		session.SetEventListener(srv.handler)
		session.SetWQLen(sessionWQLen)
		session.SetCronPeriod(cronPeriodMs)
		log.Debug("accepted session %s", session.Stat())
		return nil
	})
	srv.serverList = append(srv.serverList, server)
}

func (srv *RAServer) uninitServer() {
	for _, server := range srv.serverList {
		server.Close()
	}
	if srv.taskPool != nil {
		srv.taskPool.Close()
	}
}

func (srv *RAServer) initSignal() {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGHUP, syscall.SIGQUIT, syscall.SIGTERM, syscall.SIGINT)
	for {
		sig := <-signals
		log.Info("got signal %s", sig.String())
		switch sig {
		case syscall.SIGHUP:
			// nothing to reload
		default:
			srv.uninitServer()
			log.Close()
			return
		}
	}
}
