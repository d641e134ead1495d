package handlers

import "html/template"

var (
	indexPage = template.Must(template.New("index").Parse(`
<h1>Welcome{{if .}} {{.Name}}{{end}}!</h1>
{{if .}}
<a href='/home'>Home</a>
<form method='post' action='/logout'>
    <button>Logout</button>
</form>
{{else}}
<a href='/login'>Login</a>
<a href='/register'>Register</a>
{{end}}
`))

	homePage = template.Must(template.New("home").Parse(`
<h1>Home</h1>
<a href='/'>Main</a>
<ul>
    <li>Name: {{.Name}}</li>
    <li>Email: {{.Email}}</li>
</ul>
`))

	loginPage = template.Must(template.New("login").Parse(`
<h1>Login</h1>
<form method='post' action='/login'>
    <input type='email' name='email' placeholder='Email' required />
    <input type='password' name='password' placeholder='Password' required />
    <input type='submit' />
</form>
<a href='/register'>Register</a>
`))

	registerPage = template.Must(template.New("register").Parse(`
<h1>Register</h1>
<form method='post' action='/register'>
    <input type='text' name='name' placeholder='Name' required />
    <input type='email' name='email' placeholder='Email' required />
    <input type='password' name='password' placeholder='Password' required />
    <input type='submit' />
</form>
<a href='/login'>Login</a>
`))
)
