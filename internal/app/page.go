package app

// dashboardHTML is the page shell. Rows arrive over /ws as view frames and
// replace the table body wholesale; controls post to the action endpoints.
const dashboardHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Alerts</title>
    <style>
        :root {
            --bg-primary: #0d1117;
            --bg-secondary: #161b22;
            --border-color: #30363d;
            --text-primary: #c9d1d9;
            --text-secondary: #8b949e;
            --accent-blue: #58a6ff;
            --accent-green: #3fb950;
            --accent-red: #f85149;
        }
        body { background: var(--bg-primary); color: var(--text-primary); font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", sans-serif; margin: 0; padding: 20px; }
        header { display: flex; justify-content: space-between; align-items: center; margin-bottom: 16px; }
        .status span { margin-left: 12px; color: var(--text-secondary); }
        .status .ok { color: var(--accent-green); }
        .status .bad { color: var(--accent-red); }
        .filters button { background: var(--bg-secondary); color: var(--text-primary); border: 1px solid var(--border-color); padding: 6px 12px; cursor: pointer; }
        .filters button.active { border-color: var(--accent-blue); color: var(--accent-blue); }
        table { width: 100%; border-collapse: collapse; margin-top: 12px; }
        th, td { border-bottom: 1px solid var(--border-color); padding: 8px; text-align: left; }
        .trigger { display: inline-block; background: var(--bg-secondary); border-radius: 4px; padding: 1px 6px; margin-right: 4px; font-size: 12px; }
        .badge { font-weight: 600; }
        input.qty { width: 48px; }
        #notices { position: fixed; bottom: 20px; right: 20px; }
        .notice { padding: 10px 14px; margin-top: 8px; border-radius: 6px; background: var(--bg-secondary); border-left: 4px solid var(--accent-blue); }
        .notice.success { border-color: var(--accent-green); }
        .notice.error { border-color: var(--accent-red); }
        .empty { color: var(--text-secondary); padding: 24px; text-align: center; }
    </style>
</head>
<body>
<header>
    <div class="filters" id="filters"></div>
    <div class="status" id="status"></div>
</header>
<div class="toolbar">
    <button id="clear-all">Clear all</button>
    <button id="reset-sim">Reset simulation</button>
</div>
<table>
    <thead><tr><th>Symbol</th><th>Signal</th><th>Price</th><th>VWAP</th><th>Confidence</th><th>Time</th><th>Triggers</th><th></th></tr></thead>
    <tbody id="rows"></tbody>
</table>
<div id="notices"></div>
<script>
function esc(s) {
    return String(s == null ? '' : s).replace(/[&<>"']/g, c => ({'&':'&amp;','<':'&lt;','>':'&gt;','"':'&quot;',"'":'&#39;'}[c]));
}

function post(path, body) {
    return fetch(path, {method: 'POST', headers: {'Content-Type': 'application/json'}, body: JSON.stringify(body || {})});
}

function draw(view) {
    document.getElementById('filters').innerHTML = view.controls.map(c =>
        '<button class="' + (c.active ? 'active' : '') + '" data-filter="' + esc(c.filter) + '">' + esc(c.label) + '</button>').join('');

    const st = view.status;
    document.getElementById('status').innerHTML = st
        ? '<span class="' + (st.market_open ? 'ok' : 'bad') + '">Market: ' + esc(st.market_label) + '</span>' +
          '<span class="' + (st.broker_connected ? 'ok' : 'bad') + '">Broker: ' + esc(st.broker_label) + '</span>'
        : '';

    const rows = view.rows || [];
    document.getElementById('rows').innerHTML = rows.length === 0
        ? '<tr><td colspan="8" class="empty">No alerts</td></tr>'
        : rows.map(r =>
            '<tr>' +
            '<td><a href="' + esc(r.chart_url) + '" target="_blank">' + esc(r.symbol) + '</a> ' + esc(r.name) + '</td>' +
            '<td class="badge ' + esc(r.badge.class) + '">' + esc(r.badge.icon) + ' ' + esc(r.badge.label) + '</td>' +
            '<td>' + esc(r.price) + '</td>' +
            '<td>' + esc(r.vwap) + '</td>' +
            '<td>' + esc(r.confidence) + '</td>' +
            '<td>' + esc(r.time) + '</td>' +
            '<td>' + r.triggers.map(t => '<span class="trigger">' + esc(t) + '</span>').join('') + '</td>' +
            '<td><input class="qty" value="' + esc(r.buy.default_qty) + '">' +
            '<button data-buy="' + esc(r.buy.symbol) + '">Buy</button>' +
            '<button data-sell="' + esc(r.buy.symbol) + '">Sell</button>' +
            '<button data-clear="' + esc(r.clear.id) + '">Clear</button></td>' +
            '</tr>').join('');
}

function qtyFor(button) {
    return button.closest('td').querySelector('input.qty').value;
}

function notice(n) {
    const el = document.createElement('div');
    el.className = 'notice ' + n.level;
    el.textContent = n.message;
    document.getElementById('notices').appendChild(el);
    setTimeout(() => el.remove(), 5000);
}

document.addEventListener('click', e => {
    const t = e.target;
    if (t.dataset.filter) post('/api/filter', {filter: t.dataset.filter});
    if (t.dataset.clear) post('/api/actions/clear/' + encodeURIComponent(t.dataset.clear));
    if (t.dataset.buy) post('/api/actions/buy', {symbol: t.dataset.buy, qty: qtyFor(t)});
    if (t.dataset.sell) post('/api/actions/sell', {symbol: t.dataset.sell, qty: qtyFor(t)});
    if (t.id === 'clear-all') post('/api/actions/clear-all');
    if (t.id === 'reset-sim' && confirm('Reset the simulation? All simulated positions will be wiped.')) post('/api/actions/reset');
});

function connect() {
    const ws = new WebSocket((location.protocol === 'https:' ? 'wss://' : 'ws://') + location.host + '/ws');
    ws.onmessage = e => {
        const f = JSON.parse(e.data);
        if (f.type === 'view') draw(f.view);
        if (f.type === 'notice') notice(f.notice);
    };
    ws.onclose = () => setTimeout(connect, 2000);
}
connect();
</script>
</body>
</html>
`
