package location

// departments lists the Colombian departments served by the store with the
// cities offered in the checkout selectors. Order is display order.
var departments = []department{
	{Name: "Amazonas", Cities: []string{"Leticia", "Puerto Nariño"}},
	{Name: "Antioquia", Cities: []string{"Medellín", "Bello", "Itagüí", "Envigado", "Sabaneta", "La Estrella", "Rionegro", "Apartadó", "Caucasia", "Turbo"}},
	{Name: "Arauca", Cities: []string{"Arauca", "Saravena", "Tame"}},
	{Name: "Atlántico", Cities: []string{"Barranquilla", "Soledad", "Malambo", "Puerto Colombia", "Sabanalarga"}},
	{Name: "Bogotá D.C.", Cities: []string{"Bogotá"}},
	{Name: "Bolívar", Cities: []string{"Cartagena", "Magangué", "Turbaco", "El Carmen de Bolívar"}},
	{Name: "Boyacá", Cities: []string{"Tunja", "Duitama", "Sogamoso", "Chiquinquirá", "Paipa"}},
	{Name: "Caldas", Cities: []string{"Manizales", "Villamaría", "La Dorada", "Chinchiná"}},
	{Name: "Caquetá", Cities: []string{"Florencia", "San Vicente del Caguán"}},
	{Name: "Casanare", Cities: []string{"Yopal", "Aguazul", "Villanueva"}},
	{Name: "Cauca", Cities: []string{"Popayán", "Santander de Quilichao", "Puerto Tejada"}},
	{Name: "Cesar", Cities: []string{"Valledupar", "Aguachica", "Codazzi"}},
	{Name: "Chocó", Cities: []string{"Quibdó", "Istmina"}},
	{Name: "Córdoba", Cities: []string{"Montería", "Cereté", "Lorica", "Sahagún"}},
	{Name: "Cundinamarca", Cities: []string{"Bogotá", "Soacha", "Chía", "Cajicá", "Zipaquirá", "Funza", "Mosquera", "Madrid", "Facatativá", "La Calera", "Cota", "Tocancipá", "Sopó", "Fusagasugá", "Girardot"}},
	{Name: "Guainía", Cities: []string{"Inírida"}},
	{Name: "Guaviare", Cities: []string{"San José del Guaviare"}},
	{Name: "Huila", Cities: []string{"Neiva", "Pitalito", "Garzón", "La Plata"}},
	{Name: "La Guajira", Cities: []string{"Riohacha", "Maicao", "Uribia"}},
	{Name: "Magdalena", Cities: []string{"Santa Marta", "Ciénaga", "Fundación"}},
	{Name: "Meta", Cities: []string{"Villavicencio", "Acacías", "Granada", "Puerto López"}},
	{Name: "Nariño", Cities: []string{"Pasto", "Tumaco", "Ipiales"}},
	{Name: "Norte de Santander", Cities: []string{"Cúcuta", "Ocaña", "Pamplona", "Villa del Rosario", "Los Patios"}},
	{Name: "Putumayo", Cities: []string{"Mocoa", "Puerto Asís"}},
	{Name: "Quindío", Cities: []string{"Armenia", "Calarcá", "Montenegro", "Quimbaya"}},
	{Name: "Risaralda", Cities: []string{"Pereira", "Dosquebradas", "Santa Rosa de Cabal"}},
	{Name: "San Andrés y Providencia", Cities: []string{"San Andrés", "Providencia"}},
	{Name: "Santander", Cities: []string{"Bucaramanga", "Floridablanca", "Girón", "Piedecuesta", "Barrancabermeja", "San Gil"}},
	{Name: "Sucre", Cities: []string{"Sincelejo", "Corozal", "Sampués"}},
	{Name: "Tolima", Cities: []string{"Ibagué", "Espinal", "Melgar", "Honda"}},
	{Name: "Valle del Cauca", Cities: []string{"Cali", "Palmira", "Buenaventura", "Tuluá", "Jamundí", "Yumbo", "Buga", "Cartago"}},
	{Name: "Vaupés", Cities: []string{"Mitú"}},
	{Name: "Vichada", Cities: []string{"Puerto Carreño"}},
}

// bogotaLocalities are the twenty administrative localities of Bogotá.
var bogotaLocalities = []string{
	"Usaquén",
	"Chapinero",
	"Santa Fe",
	"San Cristóbal",
	"Usme",
	"Tunjuelito",
	"Bosa",
	"Kennedy",
	"Fontibón",
	"Engativá",
	"Suba",
	"Barrios Unidos",
	"Teusaquillo",
	"Los Mártires",
	"Antonio Nariño",
	"Puente Aranda",
	"La Candelaria",
	"Rafael Uribe Uribe",
	"Ciudad Bolívar",
	"Sumapaz",
}

// regionalCities are served by the store's own couriers outside Bogotá.
var regionalCities = []string{
	"Soacha", "Chía", "Cajicá", "Zipaquirá", "Funza", "Mosquera",
	"Madrid", "Facatativá", "La Calera", "Cota", "Tocancipá", "Sopó",
}
