package store

import (
	"path/filepath"
	"testing"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenMigrated(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := testDB(t)

	result, err := db.Migrate()
	if err != nil {
		t.Fatal(err)
	}
	if result.Changed {
		t.Error("second Migrate() should report Changed=false")
	}
	if result.Version != 2 {
		t.Errorf("version = %d, want 2 (init + lid_map)", result.Version)
	}
}

func TestPeerIDStable(t *testing.T) {
	db := testDB(t)

	a, err := db.PeerID("a@s.whatsapp.net")
	if err != nil {
		t.Fatal(err)
	}
	b, err := db.PeerID("b@g.us")
	if err != nil {
		t.Fatal(err)
	}
	again, err := db.PeerID("a@s.whatsapp.net")
	if err != nil {
		t.Fatal(err)
	}
	if a == b || a != again || a <= 0 {
		t.Fatalf("ids a=%d b=%d again=%d", a, b, again)
	}
	jid, err := db.PeerJID(b)
	if err != nil || jid != "b@g.us" {
		t.Fatalf("PeerJID(%d) = %q, %v", b, jid, err)
	}
	if jid, _ := db.PeerJID(999); jid != "" {
		t.Errorf("unknown peer = %q", jid)
	}
}

func TestChatUpsertKeepsNameAndNewestTime(t *testing.T) {
	db := testDB(t)

	if err := db.UpsertChat(&Chat{JID: "1@s.whatsapp.net", Name: "Alice", Kind: KindPrivate, LastMessageAt: 2000}); err != nil {
		t.Fatal(err)
	}
	if err := db.UpsertChat(&Chat{JID: "1@s.whatsapp.net", Kind: KindPrivate, LastMessageAt: 1000}); err != nil {
		t.Fatal(err)
	}

	c, err := db.GetChat("1@s.whatsapp.net")
	if err != nil {
		t.Fatal(err)
	}
	if c == nil || c.Name != "Alice" || c.LastMessageAt != 2000 {
		t.Fatalf("chat = %+v", c)
	}
	if missing, err := db.GetChat("missing@s"); err != nil || missing != nil {
		t.Errorf("missing chat = %+v, %v", missing, err)
	}
}

func TestListChatsOrderAndNames(t *testing.T) {
	db := testDB(t)

	for _, c := range []Chat{
		{JID: "old@s.whatsapp.net", Kind: KindPrivate, LastMessageAt: 100},
		{JID: "new@s.whatsapp.net", Kind: KindPrivate, LastMessageAt: 300},
		{JID: "pin@g.us", Name: "Pinned", Kind: KindGroup, LastMessageAt: 50},
		{JID: "hidden@lid", Kind: KindPrivate, LastMessageAt: 999},
	} {
		if err := db.UpsertChat(&c); err != nil {
			t.Fatal(err)
		}
	}
	if err := db.SetChatPinned("pin@g.us", true); err != nil {
		t.Fatal(err)
	}
	if err := db.UpsertContact(&Contact{JID: "old@s.whatsapp.net", PushName: "Oldie"}); err != nil {
		t.Fatal(err)
	}

	chats, err := db.ListChats(10)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"pin@g.us", "new@s.whatsapp.net", "old@s.whatsapp.net"}
	if len(chats) != len(want) {
		t.Fatalf("got %d chats, want %d", len(chats), len(want))
	}
	for i, c := range chats {
		if c.JID != want[i] {
			t.Errorf("chats[%d] = %s, want %s", i, c.JID, want[i])
		}
	}
	if chats[2].Name != "Oldie" {
		t.Errorf("name fallback = %q, want Oldie", chats[2].Name)
	}
	if chats[1].Name != "new@s.whatsapp.net" {
		t.Errorf("jid fallback = %q", chats[1].Name)
	}

	found, err := db.SearchChats("oldi", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(found) != 1 || found[0].JID != "old@s.whatsapp.net" {
		t.Errorf("search = %+v", found)
	}
}

func TestTouchChatCountsUnread(t *testing.T) {
	db := testDB(t)
	jid := "c@s.whatsapp.net"

	for _, incoming := range []bool{true, true, false} {
		if err := db.TouchChat(jid, KindPrivate, 10, incoming); err != nil {
			t.Fatal(err)
		}
	}
	c, _ := db.GetChat(jid)
	if c.UnreadCount != 2 {
		t.Fatalf("unread = %d, want 2", c.UnreadCount)
	}

	if err := db.SetChatMarkedUnread(jid, false); err != nil {
		t.Fatal(err)
	}
	c, _ = db.GetChat(jid)
	if c.UnreadCount != 0 || c.MarkedUnread {
		t.Fatalf("after mark read: %+v", c)
	}
}

func TestMessageUpsertIdempotent(t *testing.T) {
	db := testDB(t)

	msg := &Message{ChatJID: "chat@s", MsgID: "msg1", Body: "hello", Kind: "text", Timestamp: 1000}
	created, err := db.UpsertMessage(msg)
	if err != nil || !created {
		t.Fatalf("first upsert created=%v err=%v", created, err)
	}
	firstID := msg.ID

	msg.Body = "hello updated"
	created, err = db.UpsertMessage(msg)
	if err != nil || created {
		t.Fatalf("second upsert created=%v err=%v", created, err)
	}
	if msg.ID != firstID {
		t.Errorf("id changed from %d to %d", firstID, msg.ID)
	}

	msgs, err := db.ListMessages("chat@s", 0, 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 || msgs[0].Body != "hello updated" {
		t.Fatalf("messages = %+v", msgs)
	}
}

func TestListMessagesAnchored(t *testing.T) {
	db := testDB(t)

	ids := map[string]int64{}
	for i, ts := range []int64{100, 200, 200, 300, 400} {
		m := &Message{ChatJID: "c@s", MsgID: string(rune('a' + i)), Kind: "text", Timestamp: ts}
		if _, err := db.UpsertMessage(m); err != nil {
			t.Fatal(err)
		}
		ids[m.MsgID] = m.ID
	}

	page, err := db.ListMessages("c@s", 0, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(page) != 2 || page[0].MsgID != "e" || page[1].MsgID != "d" {
		t.Fatalf("first page = %+v", page)
	}

	page, err = db.ListMessages("c@s", ids["d"], 10)
	if err != nil {
		t.Fatal(err)
	}
	got := ""
	for _, m := range page {
		got += m.MsgID
	}
	if got != "cba" {
		t.Fatalf("older than d = %q, want cba", got)
	}

	last, err := db.LastMessage("c@s")
	if err != nil || last == nil || last.MsgID != "e" {
		t.Fatalf("last = %+v, %v", last, err)
	}
}

func TestDeleteMessageCascadesMedia(t *testing.T) {
	db := testDB(t)

	m := &Message{ChatJID: "c@s", MsgID: "m", Kind: "image", Timestamp: 1}
	if _, err := db.UpsertMessage(m); err != nil {
		t.Fatal(err)
	}
	md := &Media{MessageRow: m.ID, ChatJID: "c@s", Kind: "image", MimeType: "image/jpeg", Size: 10, Payload: []byte{1}}
	if err := db.UpsertMedia(md); err != nil {
		t.Fatal(err)
	}

	id, err := db.DeleteMessage("c@s", "m")
	if err != nil || id != m.ID {
		t.Fatalf("DeleteMessage = %d, %v", id, err)
	}
	if got, _ := db.GetMedia(md.FileID); got != nil {
		t.Error("media survived message deletion")
	}
}

func TestMediaDownloadState(t *testing.T) {
	db := testDB(t)

	m := &Message{ChatJID: "c@s", MsgID: "m", Kind: "document", Timestamp: 1}
	if _, err := db.UpsertMessage(m); err != nil {
		t.Fatal(err)
	}
	md := &Media{MessageRow: m.ID, ChatJID: "c@s", Kind: "document", FileName: "a.pdf", Size: 42, Payload: []byte{1, 2}}
	if err := db.UpsertMedia(md); err != nil {
		t.Fatal(err)
	}
	first := md.FileID
	if err := db.UpsertMedia(md); err != nil {
		t.Fatal(err)
	}
	if md.FileID != first {
		t.Fatalf("file id changed on re-upsert: %d -> %d", first, md.FileID)
	}

	if err := db.MarkDownloaded(md.FileID, "/tmp/a.pdf"); err != nil {
		t.Fatal(err)
	}
	done, err := db.DownloadedMedia()
	if err != nil || len(done) != 1 || done[0].LocalPath != "/tmp/a.pdf" || done[0].DownloadedAt == 0 {
		t.Fatalf("downloaded = %+v, %v", done, err)
	}
	got, _ := db.MediaForMessage(m.ID)
	if got == nil || string(got.Payload) != "\x01\x02" {
		t.Fatalf("media for message = %+v", got)
	}

	if err := db.MarkDownloaded(md.FileID, ""); err != nil {
		t.Fatal(err)
	}
	if done, _ := db.DownloadedMedia(); len(done) != 0 {
		t.Errorf("forgotten download still listed: %+v", done)
	}
}

func TestReactionsAggregate(t *testing.T) {
	db := testDB(t)

	for _, r := range []struct{ sender, emoji string }{
		{"me@s", "👍"}, {"a@s", "👍"}, {"b@s", "❤️"}, {"b@s", "😂"},
	} {
		if err := db.SetReaction("c@s", "m", r.sender, r.emoji); err != nil {
			t.Fatal(err)
		}
	}
	got, err := db.Reactions("c@s", "m", "me@s")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Emoji != "👍" || got[0].Count != 2 || !got[0].FromMe || got[1].FromMe {
		t.Fatalf("reactions = %+v", got)
	}

	if err := db.SetReaction("c@s", "m", "me@s", ""); err != nil {
		t.Fatal(err)
	}
	got, _ = db.Reactions("c@s", "m", "me@s")
	for _, r := range got {
		if r.FromMe {
			t.Errorf("removed reaction still marked as mine: %+v", r)
		}
	}
}

func TestClearHistory(t *testing.T) {
	db := testDB(t)

	if err := db.TouchChat("c@s", KindPrivate, 5, true); err != nil {
		t.Fatal(err)
	}
	if _, err := db.UpsertMessage(&Message{ChatJID: "c@s", MsgID: "m", Timestamp: 5}); err != nil {
		t.Fatal(err)
	}

	if err := db.ClearHistory("c@s", false); err != nil {
		t.Fatal(err)
	}
	if msgs, _ := db.ListMessages("c@s", 0, 10); len(msgs) != 0 {
		t.Errorf("messages left: %d", len(msgs))
	}
	if c, _ := db.GetChat("c@s"); c == nil || c.UnreadCount != 0 {
		t.Errorf("chat after clear = %+v", c)
	}

	if err := db.ClearHistory("c@s", true); err != nil {
		t.Fatal(err)
	}
	if c, _ := db.GetChat("c@s"); c != nil {
		t.Error("chat not removed")
	}
}

func TestOutboxLifecycle(t *testing.T) {
	db := testDB(t)

	for _, id := range []string{"client1", "client2"} {
		if err := db.QueueOutbox(id, "chat@s", "msg "+id); err != nil {
			t.Fatal(err)
		}
	}
	pending, err := db.PendingOutbox()
	if err != nil || len(pending) != 2 || pending[0].ClientMsgID != "client1" {
		t.Fatalf("pending = %+v, %v", pending, err)
	}

	if err := db.MarkOutboxSending("client1"); err != nil {
		t.Fatal(err)
	}
	if err := db.MarkOutboxSent("client1", "server1"); err != nil {
		t.Fatal(err)
	}
	if err := db.MarkOutboxSending("client2"); err != nil {
		t.Fatal(err)
	}

	if n, err := db.RequeueInterrupted(); err != nil || n != 1 {
		t.Fatalf("requeued %d, %v", n, err)
	}
	pending, _ = db.PendingOutbox()
	if len(pending) != 1 || pending[0].ClientMsgID != "client2" {
		t.Fatalf("pending after requeue = %+v", pending)
	}

	e, err := db.GetOutbox("client1")
	if err != nil || e == nil || e.Status != OutboxSent || e.ServerMsgID != "server1" {
		t.Fatalf("client1 = %+v, %v", e, err)
	}
}

func TestContactKeepsNonEmptyFields(t *testing.T) {
	db := testDB(t)

	if err := db.UpsertContact(&Contact{JID: "j@s", Name: "John", PushName: "Johnny"}); err != nil {
		t.Fatal(err)
	}
	if err := db.BulkUpsertContacts([]Contact{{JID: "j@s", PushName: "JJ"}, {JID: "k@s", Name: "Kim"}}); err != nil {
		t.Fatal(err)
	}
	c, err := db.GetContact("j@s")
	if err != nil || c == nil || c.Name != "John" || c.PushName != "JJ" {
		t.Fatalf("contact = %+v, %v", c, err)
	}
	chats, msgs, err := db.Counts()
	if err != nil || chats != 0 || msgs != 0 {
		t.Errorf("counts = %d, %d, %v", chats, msgs, err)
	}
}

func TestSyncState(t *testing.T) {
	db := testDB(t)

	if v, err := db.SyncState("history"); err != nil || v != "" {
		t.Fatalf("unset = %q, %v", v, err)
	}
	if err := db.SetSyncState("history", "done"); err != nil {
		t.Fatal(err)
	}
	if v, _ := db.SyncState("history"); v != "done" {
		t.Errorf("value = %q", v)
	}
}

func TestReconcileLIDs(t *testing.T) {
	db := testDB(t)
	lidChat := "555@lid"
	pnChat := "4412345@s.whatsapp.net"

	if err := db.TouchChat(lidChat, KindPrivate, 500, true); err != nil {
		t.Fatal(err)
	}
	if err := db.TouchChat(pnChat, KindPrivate, 100, true); err != nil {
		t.Fatal(err)
	}
	for _, m := range []Message{
		{ChatJID: lidChat, MsgID: "dup", Timestamp: 100},
		{ChatJID: lidChat, MsgID: "only-lid", SenderJID: lidChat, Timestamp: 500},
		{ChatJID: pnChat, MsgID: "dup", Timestamp: 100},
	} {
		if _, err := db.UpsertMessage(&m); err != nil {
			t.Fatal(err)
		}
	}
	if err := db.SyncLIDMap([]LIDMapping{{LID: "555", PN: "4412345"}}); err != nil {
		t.Fatal(err)
	}

	merged, err := db.ReconcileLIDs()
	if err != nil {
		t.Fatal(err)
	}
	if merged != 1 {
		t.Errorf("merged = %d, want 1", merged)
	}
	if c, _ := db.GetChat(lidChat); c != nil {
		t.Error("LID chat still present")
	}
	c, _ := db.GetChat(pnChat)
	if c == nil || c.LastMessageAt != 500 || c.UnreadCount != 2 {
		t.Fatalf("PN chat = %+v", c)
	}
	msgs, _ := db.ListMessages(pnChat, 0, 10)
	if len(msgs) != 2 || msgs[0].MsgID != "only-lid" || msgs[0].SenderJID != pnChat {
		t.Fatalf("PN messages = %+v", msgs)
	}
}
