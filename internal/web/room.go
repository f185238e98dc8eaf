package web

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

// RoomView is the in-browser participant. It speaks the same action envelope
// as the Go clients over the relay channel and keeps a light lobby view.
func RoomView(code, channel string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		safeCode := templ.EscapeString(code)
		safeChannel := templ.EscapeString(channel)
		_, err := io.WriteString(w, `<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>Chaos Room `+safeCode+`</title>
    `+pageStyle+`
  </head>
  <body data-room="`+safeCode+`" data-channel="`+safeChannel+`">
    <main class="shell">
      <header class="hero">
        <span class="tag">Room `+safeCode+`</span>
        <h1 id="status">Lobby</h1>
        <img src="/api/rooms/`+safeCode+`/qr.png" alt="QR code for room `+safeCode+`" width="140"/>
      </header>

      <section class="panel">
        <form id="nameForm">
          <input name="name" placeholder="Display name" maxlength="32" required/>
          <button type="submit" class="primary">Enter</button>
        </form>
        <ul id="players" class="log"></ul>
      </section>

      <section class="panel">
        <h2>Chat</h2>
        <ul id="chat" class="log"></ul>
        <form id="chatForm">
          <input name="text" maxlength="280" autocomplete="off"/>
          <button type="submit" class="secondary">Send</button>
        </form>
      </section>
    </main>

    <script>
      const room = document.body.dataset.room;
      const channel = document.body.dataset.channel;
      const isHost = new URLSearchParams(window.location.search).has("host");
      const playerId = crypto.randomUUID();
      const players = new Map();
      let self = null;
      let socket = null;

      const render = () => {
        const list = document.getElementById("players");
        list.innerHTML = "";
        for (const p of players.values()) {
          if (p.left) continue;
          const item = document.createElement("li");
          item.textContent = p.name + (p.is_host ? " (host)" : "") + " " + p.score;
          list.append(item);
        }
      };

      const log = (text) => {
        const item = document.createElement("li");
        item.textContent = text;
        document.getElementById("chat").append(item);
      };

      const send = (type, payload) => {
        if (!socket || socket.readyState !== WebSocket.OPEN) return;
        socket.send(JSON.stringify({ type, sender_id: playerId, room_code: room, payload }));
      };

      const apply = (action) => {
        if (action.room_code !== room) return;
        const p = action.payload || {};
        switch (action.type) {
          case "PLAYER_JOINED":
            players.set(p.player.id, p.player);
            if (self && self.is_host) {
              send("ROOM_SNAPSHOT", { players: [...players.values()], status: "LOBBY", round: 0, resolvedRound: 0, maxRounds: 5 });
            }
            break;
          case "PLAYER_LEFT":
            if (players.has(action.sender_id)) players.get(action.sender_id).left = true;
            break;
          case "ROOM_SNAPSHOT":
            for (const player of p.players) {
              if (player.id !== playerId) players.set(player.id, player);
            }
            break;
          case "START_GAME":
            document.getElementById("status").textContent = "Round " + p.round + ": " + p.task.title;
            break;
          case "FINISH_ROUND":
            log("Round " + p.round + " goes to " + p.winnerInfo.winner + ". " + p.winnerInfo.reason);
            break;
          case "CHAT_MESSAGE":
            log(p.senderName + ": " + p.text);
            break;
        }
        render();
      };

      document.getElementById("nameForm").addEventListener("submit", (event) => {
        event.preventDefault();
        if (socket) return;
        const name = event.target.elements.name.value.trim();
        self = { id: playerId, name, score: 0, is_host: isHost, is_ready: false };
        players.set(playerId, self);
        const scheme = window.location.protocol === "https:" ? "wss://" : "ws://";
        socket = new WebSocket(scheme + window.location.host + "/ws/channels/" + channel + "?player_id=" + playerId);
        socket.addEventListener("open", () => send("PLAYER_JOINED", { player: self }));
        socket.addEventListener("message", (event) => apply(JSON.parse(event.data)));
        socket.addEventListener("close", () => log("Disconnected from the relay."));
        render();
      });

      document.getElementById("chatForm").addEventListener("submit", (event) => {
        event.preventDefault();
        const input = event.target.elements.text;
        const text = input.value.trim();
        if (!text || !self) return;
        send("CHAT_MESSAGE", { senderName: self.name, text });
        log(self.name + ": " + text);
        input.value = "";
      });

      window.addEventListener("beforeunload", () => send("PLAYER_LEFT", { reason: "closed" }));
    </script>
  </body>
</html>`)
		return err
	})
}
