package oauth

// Pages rendered into the user's browser tab after the provider redirects
// back to the loopback listener.

const successPage = `<!DOCTYPE html>
<html>
<head><title>Sign-in complete</title></head>
<body style="font-family: sans-serif; text-align: center; padding-top: 4em;">
<h2>Sign-in complete</h2>
<p>You can close this tab and return to ZenChat.</p>
</body>
</html>`

const errorPage = `<!DOCTYPE html>
<html>
<head><title>Sign-in failed</title></head>
<body style="font-family: sans-serif; text-align: center; padding-top: 4em;">
<h2>Sign-in failed</h2>
<p>The sign-in attempt was not completed. You can close this tab and try again from ZenChat.</p>
</body>
</html>`
