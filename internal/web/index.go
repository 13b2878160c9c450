package web

const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>folio journal</title>
<style>
body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", sans-serif; margin: 0; background: #0f1115; color: #e6e6e6; }
header { padding: 16px 24px; border-bottom: 1px solid #23262d; display: flex; justify-content: space-between; align-items: baseline; }
h1 { font-size: 18px; margin: 0; }
#status { font-size: 12px; color: #8a8f98; }
main { padding: 16px 24px; display: grid; grid-template-columns: 280px 1fr; gap: 24px; }
.card { background: #161922; border: 1px solid #23262d; border-radius: 8px; padding: 16px; }
.muted { color: #8a8f98; font-size: 12px; }
table { width: 100%; border-collapse: collapse; font-size: 13px; }
th, td { text-align: left; padding: 6px 8px; border-bottom: 1px solid #23262d; }
.done { color: #4cc38a; } .rejected { color: #e5a50a; } .failed { color: #e5484d; }
</style>
</head>
<body>
<header><h1>folio order journal</h1><span id="status">connecting...</span></header>
<main>
  <section class="card">
    <div class="muted">Balance</div>
    <div id="balance" style="font-size:24px;margin:4px 0 12px">-</div>
    <div class="muted">Holdings</div>
    <table id="holdings"><tbody></tbody></table>
  </section>
  <section class="card">
    <table>
      <thead><tr><th>#</th><th>Time</th><th>Order</th><th>Price</th><th>Status</th><th>Balance</th></tr></thead>
      <tbody id="orders"><tr id="empty"><td colspan="6" class="muted">Loading...</td></tr></tbody>
    </table>
  </section>
</main>
<script>
const statusEl = document.getElementById('status');
const ordersEl = document.getElementById('orders');
const emptyEl = document.getElementById('empty');

function renderLedger(){
  fetch('/ledger').then(r => r.ok ? r.json() : null).then(l => {
    if (!l) return;
    document.getElementById('balance').textContent = Number(l.balance).toFixed(2);
    const body = document.querySelector('#holdings tbody');
    body.innerHTML = '';
    Object.entries(l.holdings || {}).forEach(([sym, qty]) => {
      const tr = document.createElement('tr');
      tr.innerHTML = '<td>' + sym + '</td><td>' + qty + '</td>';
      body.appendChild(tr);
    });
  }).catch(() => {});
}

function addOrder(id, e){
  if (emptyEl) emptyEl.remove();
  const tr = document.createElement('tr');
  const ts = new Date(e.ts).toLocaleString();
  tr.innerHTML = '<td>' + id + '</td><td>' + ts + '</td><td>' + e.side + ' ' + e.quantity + ' ' + e.symbol +
    '</td><td>' + e.price + '</td><td class="' + e.status + '">' + e.status + (e.error ? ' (' + e.error + ')' : '') +
    '</td><td>' + e.balance + '</td>';
  ordersEl.prepend(tr);
}

function connect(){
  const es = new EventSource('/journal/stream');
  es.onopen = () => { statusEl.textContent = 'live'; };
  es.addEventListener('order', ev => { addOrder(ev.lastEventId, JSON.parse(ev.data)); renderLedger(); });
  es.addEventListener('no_data', () => { if (emptyEl) emptyEl.firstChild.textContent = 'No orders yet'; });
  es.onerror = () => { statusEl.textContent = 'reconnecting...'; };
}

renderLedger();
connect();
</script>
</body>
</html>
`
