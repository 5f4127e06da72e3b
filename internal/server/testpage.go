package server

import (
	"fmt"
	"log/slog"
	"net/http"
)

// TestPageHandler serves an HTML page for exercising the event protocol by
// hand: join a room, send messages, and watch presence and typing events.
func TestPageHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	html := `<!DOCTYPE html>
<html>
<head>
    <title>Parlor WebSocket Test</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        #events {
            border: 1px solid #ccc;
            height: 300px;
            padding: 10px;
            overflow-y: scroll;
            margin: 10px 0;
            background-color: #f9f9f9;
        }
        input[type="text"] { padding: 5px; margin-right: 10px; }
        button {
            padding: 5px 15px;
            background-color: #007cba;
            color: white;
            border: none;
            cursor: pointer;
        }
        .system { color: gray; font-style: italic; }
        .message { color: black; }
        .typing { color: green; font-style: italic; }
        .error { color: red; }
    </style>
</head>
<body>
    <h1>Parlor WebSocket Test</h1>

    <div>
        <input type="text" id="username" placeholder="Username" value="tester">
        <input type="text" id="room" placeholder="Room" value="general">
        <button onclick="connectAndJoin()">Join</button>
        <button onclick="switchRoom()">Switch room</button>
    </div>
    <div>
        <input type="text" id="content" placeholder="Type a message..." oninput="onTyping()">
        <button onclick="sendMessage()">Send</button>
    </div>

    <div id="events"></div>

    <script>
        let ws = null;
        const eventsDiv = document.getElementById('events');

        function log(text, cls) {
            const el = document.createElement('div');
            el.className = cls || 'system';
            el.textContent = text;
            eventsDiv.appendChild(el);
            eventsDiv.scrollTop = eventsDiv.scrollHeight;
        }

        function emit(event, data) {
            if (ws && ws.readyState === WebSocket.OPEN) {
                ws.send(JSON.stringify({event: event, data: data}));
            }
        }

        function connectAndJoin() {
            const username = document.getElementById('username').value;
            const room = document.getElementById('room').value;
            if (ws) { ws.close(); }
            ws = new WebSocket('ws://' + location.host + '/ws');
            ws.onopen = () => emit('join', {username: username, room: room});
            ws.onclose = () => log('connection closed');
            ws.onmessage = (raw) => {
                const ev = JSON.parse(raw.data);
                switch (ev.event) {
                case 'receive-message':
                    log(ev.data.username + ': ' + ev.data.content, 'message');
                    break;
                case 'user-joined':
                case 'user-left':
                    log(ev.data.message);
                    break;
                case 'room-users':
                    log('online: ' + ev.data.map(u => u.username).join(', '));
                    break;
                case 'user-typing':
                    log(ev.data.username + ' is typing...', 'typing');
                    break;
                case 'user-stop-typing':
                    log(ev.data.username + ' stopped typing', 'typing');
                    break;
                case 'error':
                    log(ev.data.kind + ': ' + ev.data.message, 'error');
                    break;
                }
            };
        }

        function switchRoom() {
            emit('switch-room', {newRoom: document.getElementById('room').value});
        }

        function sendMessage() {
            const input = document.getElementById('content');
            emit('send-message', {content: input.value});
            input.value = '';
        }

        function onTyping() {
            emit('typing', {});
        }

        document.getElementById('content').addEventListener('keypress', (e) => {
            if (e.key === 'Enter') { sendMessage(); }
        });
    </script>
</body>
</html>`
	if _, err := fmt.Fprint(w, html); err != nil {
		slog.Error("writing test page", "err", err)
	}
}
