package spectator

import (
	"html/template"
	"net/http"
)

type pageData struct {
	Width        int
	Height       int
	CellSize     int
	PixelWidth   int
	PixelHeight  int
	AllowControl bool
	Foods        []FoodTypeView
}

var pageTmpl = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>snekrush spectator</title>
<style>
body { background: #111; color: #ddd; font-family: monospace; }
#board { background: #000; border: 1px solid #444; }
#status span { margin-right: 1.5em; }
</style>
</head>
<body>
<div id="status">
  <span id="state">idle</span>
  <span>score <b id="score">0</b></span>
  <span>best <b id="high">0</b></span>
  <span>length <b id="length">0</b></span>
</div>
<canvas id="board" width="{{.PixelWidth}}" height="{{.PixelHeight}}"
  data-width="{{.Width}}" data-height="{{.Height}}" data-cell="{{.CellSize}}"
  data-control="{{.AllowControl}}"></canvas>
<ul id="legend">
{{- range .Foods}}
  <li class="food" data-name="{{.Name}}" style="color: {{.Color}}">{{.Name}}: {{.Points}} pts</li>
{{- end}}
</ul>
<ol id="events"></ol>
<script>
(function () {
  const board = document.getElementById("board");
  const ctx = board.getContext("2d");
  const cell = Number(board.dataset.cell);
  const palettes = ["#00FF66", "#00CCFF", "#FFAA00"];
  const ws = new WebSocket((location.protocol === "https:" ? "wss://" : "ws://") + location.host + "/ws");
  function draw(s) {
    ctx.fillStyle = "#000";
    ctx.fillRect(0, 0, board.width, board.height);
    if (s.food) {
      ctx.fillStyle = s.food.color;
      ctx.fillRect(s.food.pos.x, s.food.pos.y, cell, cell);
    }
    ctx.fillStyle = palettes[s.palette % palettes.length];
    for (const p of s.snake) ctx.fillRect(p.x, p.y, cell - 1, cell - 1);
    document.getElementById("state").textContent = s.state;
    document.getElementById("score").textContent = s.score;
    document.getElementById("high").textContent = s.highScore;
    document.getElementById("length").textContent = s.length;
  }
  ws.onmessage = function (m) {
    const msg = JSON.parse(m.data);
    if (msg.type === "snapshot") draw(msg.snapshot);
    if (msg.type === "event") {
      const li = document.createElement("li");
      li.textContent = msg.event + " " + JSON.stringify(msg.data);
      const list = document.getElementById("events");
      list.prepend(li);
      while (list.children.length > 20) list.lastChild.remove();
    }
  };
  if (board.dataset.control === "true") {
    const keys = {ArrowUp: "up", ArrowDown: "down", ArrowLeft: "left", ArrowRight: "right",
      p: "pause", " ": "pause", r: "reset", Enter: "start", Escape: "menu"};
    document.addEventListener("keydown", function (e) {
      const action = keys[e.key];
      if (action) ws.send(JSON.stringify({action: action}));
    });
  }
})();
</script>
</body>
</html>
`))

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	cv := s.configView()
	data := pageData{
		Width:        cv.Grid.Width,
		Height:       cv.Grid.Height,
		CellSize:     cv.Grid.CellSize,
		PixelWidth:   cv.Grid.Width * cv.Grid.CellSize,
		PixelHeight:  cv.Grid.Height * cv.Grid.CellSize,
		AllowControl: cv.AllowControl,
		Foods:        cv.FoodTypes,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTmpl.Execute(w, data); err != nil {
		s.log.Error("render spectator page", "error", err)
	}
}
