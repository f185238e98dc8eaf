package web

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

const pageStyle = `<style>
      body { font-family: system-ui, sans-serif; background: #14121f; color: #f4f1ff; margin: 0; }
      .shell { max-width: 720px; margin: 0 auto; padding: 2rem 1rem; }
      .tag { text-transform: uppercase; letter-spacing: .2em; color: #ff5ea8; font-weight: 700; }
      .panel { background: #221f33; border-radius: 12px; padding: 1.25rem; margin-top: 1.25rem; }
      button { border: 0; border-radius: 8px; padding: .6rem 1rem; font-weight: 700; cursor: pointer; }
      .primary { background: #ff5ea8; color: #14121f; }
      .secondary { background: #5ee6ff; color: #14121f; }
      input { padding: .55rem; border-radius: 8px; border: 1px solid #3c3754; background: #14121f; color: inherit; }
      .result { margin-top: .75rem; min-height: 1.2rem; }
      ul.log { list-style: none; padding: 0; max-height: 18rem; overflow-y: auto; }
    </style>`

func Home() templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, `<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>Chaos Room</title>
    `+pageStyle+`
  </head>
  <body>
    <main class="shell">
      <header class="hero">
        <span class="tag">Chaos Room</span>
        <h1>Four mini-games. One shared screen. No mercy.</h1>
        <p>Open a room, share the code, and let the judge sort it out.</p>
      </header>

      <section class="panel">
        <div>
          <h2>Open a room</h2>
          <p>Get a five character code and a QR code your players can scan.</p>
        </div>
        <button id="createRoom" class="primary">Open room</button>
        <div id="createResult" class="result"></div>
      </section>

      <section class="panel">
        <div>
          <h2>Join a room</h2>
          <p>Enter the code from the host.</p>
        </div>
        <form id="joinForm" class="join-form">
          <input name="code" placeholder="Room code" maxlength="5" autocomplete="off" required/>
          <button type="submit" class="secondary">Join</button>
        </form>
        <div id="joinResult" class="result"></div>
      </section>
    </main>

    <script>
      const createBtn = document.getElementById("createRoom");
      const createResult = document.getElementById("createResult");
      const joinForm = document.getElementById("joinForm");
      const joinResult = document.getElementById("joinResult");

      createBtn.addEventListener("click", async () => {
        createResult.textContent = "Opening room...";
        const res = await fetch("/api/rooms", { method: "POST" });
        const data = await res.json();
        if (!res.ok) {
          createResult.textContent = data.error || "Failed to open room.";
          return;
        }
        createResult.innerHTML = "";
        const link = document.createElement("a");
        link.href = data.join_url + "?host=1";
        link.textContent = "Room " + data.code + " is ready. Enter as host.";
        const qr = document.createElement("img");
        qr.src = data.qr_url;
        qr.alt = "QR code for room " + data.code;
        qr.width = 160;
        createResult.append(link, document.createElement("br"), qr);
      });

      joinForm.addEventListener("submit", async (event) => {
        event.preventDefault();
        const code = joinForm.elements.code.value.trim().toUpperCase();
        const res = await fetch("/api/rooms/" + encodeURIComponent(code));
        if (!res.ok) {
          joinResult.textContent = "No room with code " + code + ".";
          return;
        }
        window.location.href = "/rooms/" + code;
      });
    </script>
  </body>
</html>`)
		return err
	})
}
