package main

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/juju/errors"

	"skabillium/memo/cmd/resp"
)

const (
	ErrWrongPass = errors.ConstError("WRONGPASS invalid username-password pair or user is disabled.")
	ErrNoProto   = errors.ConstError("NOPROTO unsupported protocol version")
)

// apply runs cmd against the database and returns the reply to send: a
// value for resp.Serialize, or an error.
func (s *Server) apply(state *session, cmd *Command) any {
	switch cmd.Kind {
	case CmdVersion:
		return "Memo server version " + MemoVersion
	case CmdPing:
		if cmd.Message != "" {
			return cmd.Message
		}
		return resp.SimpleString("PONG")
	case CmdAuth:
		if err := s.authenticate(cmd.Auth); err != nil {
			return err
		}
		state.authenticated = true
		return resp.OK
	case CmdHello:
		if cmd.RespVersion != 2 {
			return ErrNoProto
		}
		if cmd.Auth.User != "" {
			if err := s.authenticate(cmd.Auth); err != nil {
				return err
			}
			state.authenticated = true
		}
		if !state.authenticated {
			return ErrNoAuth
		}
		return []any{
			"server", "memo",
			"version", MemoVersion,
			"proto", 2,
			"mode", "standalone",
			"role", "master",
		}
	case CmdClient:
		return s.client(state, cmd.Values)
	case CmdInfo:
		return s.info()
	case CmdKeys:
		keys, err := s.db.Keys(cmd.Pattern)
		return array(keys, err)
	case CmdDbSize:
		return s.db.DbSize()
	case CmdFlushAll:
		s.db.FlushAll()
		return resp.OK
	case CmdCleanup:
		return s.db.Cleanup(cmd.Limit)
	case CmdExpire:
		return flag(s.db.Expire(cmd.Key, cmd.Seconds))
	case CmdTTL:
		return s.db.TTL(cmd.Key)
	case CmdType:
		return resp.SimpleString(s.db.Type(cmd.Key))

	case CmdSet:
		s.db.Set(cmd.Key, cmd.Value, cmd.ExpireIn)
		return resp.OK
	case CmdGet:
		return bulk(s.db.Get(cmd.Key))
	case CmdDel:
		return s.db.Del(cmd.Keys...)

	case CmdQueueAdd:
		return integer(s.db.QAdd(cmd.Key, cmd.Priority, cmd.Values...))
	case CmdQueuePop:
		return bulk(s.db.QPop(cmd.Key))
	case CmdQueuePeek:
		return bulk(s.db.QPeek(cmd.Key))
	case CmdQueueLen:
		return integer(s.db.QLen(cmd.Key))

	case CmdLPush:
		return integer(s.db.LPush(cmd.Key, cmd.Values...))
	case CmdRPush:
		return integer(s.db.RPush(cmd.Key, cmd.Values...))
	case CmdLPop:
		return bulk(s.db.LPop(cmd.Key))
	case CmdRPop:
		return bulk(s.db.RPop(cmd.Key))
	case CmdLLen:
		return integer(s.db.LLen(cmd.Key))
	case CmdLRange:
		return array(s.db.LRange(cmd.Key, cmd.Start, cmd.Stop))
	case CmdLIndex:
		return bulk(s.db.LIndex(cmd.Key, cmd.Index))
	case CmdLInsert:
		return integer(s.db.LInsert(cmd.Key, cmd.Before, cmd.Values[0], cmd.Value))
	case CmdLRem:
		return integer(s.db.LRem(cmd.Key, cmd.Count, cmd.Value))

	case CmdSetAdd:
		return integer(s.db.SAdd(cmd.Key, cmd.Values...))
	case CmdSetRem:
		return integer(s.db.SRem(cmd.Key, cmd.Values...))
	case CmdSetMembers:
		return array(s.db.SMembers(cmd.Key))
	case CmdSetIsMember:
		return flag(s.db.SIsMember(cmd.Key, cmd.Value))
	case CmdSetCard:
		return integer(s.db.SCard(cmd.Key))
	case CmdSetInter:
		return array(s.db.SInter(cmd.Keys...))
	}

	return ErrUnknownCmd(cmd.Name)
}

func (s *Server) authenticate(auth AuthOptions) error {
	if !s.options.AuthEnabled {
		return nil
	}
	if auth.User != s.options.User || auth.Password != s.options.Password {
		logger.Warningf("failed authentication for user %q", auth.User)
		return ErrWrongPass
	}
	return nil
}

// client answers the CLIENT subcommands that client libraries send on
// connect.
func (s *Server) client(state *session, args []string) any {
	switch strings.ToLower(args[0]) {
	case "setname":
		if len(args) != 2 {
			return ErrInvalidNArg("client|setname")
		}
		state.name = args[1]
		return resp.OK
	case "getname":
		if state.name == "" {
			return nil
		}
		return state.name
	case "setinfo":
		return resp.OK
	}
	return errors.Errorf("ERR unknown subcommand '%s'", args[0])
}

func (s *Server) info() string {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	stats := s.db.Stats()
	uptime := s.clock.Now().Sub(s.started)

	var b strings.Builder
	section := func(name string, lines ...string) {
		b.WriteString("# " + name + "\r\n")
		for _, l := range lines {
			b.WriteString(l + "\r\n")
		}
		b.WriteString("\r\n")
	}
	section("Server",
		"memo_version:"+MemoVersion,
		"run_id:"+s.runID,
		"tcp_port:"+s.options.Port,
		fmt.Sprintf("uptime_in_seconds:%d", int64(uptime.Seconds())),
		fmt.Sprintf("auth_enabled:%t", s.options.AuthEnabled),
		fmt.Sprintf("wal_enabled:%t", s.wal != nil),
	)
	section("Memory",
		fmt.Sprintf("used_memory:%d", mem.HeapAlloc),
		"used_memory_human:"+humanize.IBytes(mem.HeapAlloc),
		fmt.Sprintf("total_system_memory:%d", mem.Sys),
		"total_system_memory_human:"+humanize.IBytes(mem.Sys),
	)
	section("Keyspace",
		fmt.Sprintf("keys:%d", stats.Keys),
		fmt.Sprintf("expires:%d", stats.Expires),
		fmt.Sprintf("nodes:%d", stats.Nodes),
		fmt.Sprintf("free_nodes:%d", stats.FreeNodes),
		"node_capacity:"+humanize.Comma(int64(stats.NodeCapacity)),
	)
	return strings.TrimSuffix(b.String(), "\r\n")
}

func bulk(v string, found bool, err error) any {
	if err != nil {
		return err
	}
	if !found {
		return nil
	}
	return v
}

func integer(n int, err error) any {
	if err != nil {
		return err
	}
	return n
}

func array(v []string, err error) any {
	if err != nil {
		return err
	}
	return v
}

// flag replies 1 or 0, the way boolean answers go over RESP2.
func flag(ok bool, err error) any {
	if err != nil {
		return err
	}
	if ok {
		return 1
	}
	return 0
}
