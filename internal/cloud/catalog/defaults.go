package catalog

// Built-in offer tables. Prices are on-demand hourly rates; the Kubernetes
// entries cost nothing because the cluster is already paid for. Users extend
// or override these through ~/.skylift/catalog.yaml.

// kubernetesOffers are synthetic shapes carved out of an attached cluster.
var kubernetesOffers = []Offer{
	{Provider: "kubernetes", InstanceType: "2CPU--2GB", VCPUs: 2, MemoryGB: 2, HourlyCost: 0},
	{Provider: "kubernetes", InstanceType: "4CPU--8GB", VCPUs: 4, MemoryGB: 8, HourlyCost: 0},
	{Provider: "kubernetes", InstanceType: "8CPU--32GB", VCPUs: 8, MemoryGB: 32, HourlyCost: 0},
	{Provider: "kubernetes", InstanceType: "4CPU--16GB--1T4", VCPUs: 4, MemoryGB: 16,
		Accelerator: &Accelerator{Name: "T4", Count: 1}, HourlyCost: 0},
	{Provider: "kubernetes", InstanceType: "8CPU--64GB--1V100", VCPUs: 8, MemoryGB: 64,
		Accelerator: &Accelerator{Name: "V100", Count: 1}, HourlyCost: 0},
}

var awsOffers = []Offer{
	{Provider: "aws", InstanceType: "m6i.large", VCPUs: 2, MemoryGB: 8, Region: "us-east-1", HourlyCost: 0.096},
	{Provider: "aws", InstanceType: "m6i.xlarge", VCPUs: 4, MemoryGB: 16, Region: "us-east-1", HourlyCost: 0.192},
	{Provider: "aws", InstanceType: "m6i.2xlarge", VCPUs: 8, MemoryGB: 32, Region: "us-east-1", HourlyCost: 0.384},
	{Provider: "aws", InstanceType: "g4dn.xlarge", VCPUs: 4, MemoryGB: 16, Region: "us-east-1",
		Accelerator: &Accelerator{Name: "T4", Count: 1}, HourlyCost: 0.526},
	{Provider: "aws", InstanceType: "p3.2xlarge", VCPUs: 8, MemoryGB: 61, Region: "us-east-1",
		Accelerator: &Accelerator{Name: "V100", Count: 1}, HourlyCost: 3.06},
}

var gcpOffers = []Offer{
	{Provider: "gcp", InstanceType: "n2-standard-2", VCPUs: 2, MemoryGB: 8, Region: "us-central1", HourlyCost: 0.0971},
	{Provider: "gcp", InstanceType: "n2-standard-4", VCPUs: 4, MemoryGB: 16, Region: "us-central1", HourlyCost: 0.1942},
	{Provider: "gcp", InstanceType: "n2-standard-8", VCPUs: 8, MemoryGB: 32, Region: "us-central1", HourlyCost: 0.3885},
	{Provider: "gcp", InstanceType: "n1-standard-4-t4", VCPUs: 4, MemoryGB: 15, Region: "us-central1",
		Accelerator: &Accelerator{Name: "T4", Count: 1}, HourlyCost: 0.54},
	{Provider: "gcp", InstanceType: "n1-standard-8-v100", VCPUs: 8, MemoryGB: 30, Region: "us-central1",
		Accelerator: &Accelerator{Name: "V100", Count: 1}, HourlyCost: 2.86},
}

var azureOffers = []Offer{
	{Provider: "azure", InstanceType: "Standard_D2s_v5", VCPUs: 2, MemoryGB: 8, Region: "eastus", HourlyCost: 0.096},
	{Provider: "azure", InstanceType: "Standard_D4s_v5", VCPUs: 4, MemoryGB: 16, Region: "eastus", HourlyCost: 0.192},
	{Provider: "azure", InstanceType: "Standard_D8s_v5", VCPUs: 8, MemoryGB: 32, Region: "eastus", HourlyCost: 0.384},
	{Provider: "azure", InstanceType: "Standard_NC4as_T4_v3", VCPUs: 4, MemoryGB: 28, Region: "eastus",
		Accelerator: &Accelerator{Name: "T4", Count: 1}, HourlyCost: 0.526},
}

var ibmOffers = []Offer{
	{Provider: "ibm", InstanceType: "bx2-2x8", VCPUs: 2, MemoryGB: 8, Region: "us-south", HourlyCost: 0.0992},
	{Provider: "ibm", InstanceType: "bx2-4x16", VCPUs: 4, MemoryGB: 16, Region: "us-south", HourlyCost: 0.1984},
	{Provider: "ibm", InstanceType: "gx2-8x64x1v100", VCPUs: 8, MemoryGB: 64, Region: "us-south",
		Accelerator: &Accelerator{Name: "V100", Count: 1}, HourlyCost: 3.062},
}

var lambdaOffers = []Offer{
	{Provider: "lambda", InstanceType: "gpu_1x_a10", VCPUs: 30, MemoryGB: 200, Region: "us-east-1",
		Accelerator: &Accelerator{Name: "A10", Count: 1}, HourlyCost: 0.75},
	{Provider: "lambda", InstanceType: "gpu_1x_a100", VCPUs: 30, MemoryGB: 200, Region: "us-east-1",
		Accelerator: &Accelerator{Name: "A100", Count: 1}, HourlyCost: 1.29},
	{Provider: "lambda", InstanceType: "gpu_8x_a100", VCPUs: 124, MemoryGB: 1800, Region: "us-east-1",
		Accelerator: &Accelerator{Name: "A100", Count: 8}, HourlyCost: 10.32},
}

// DefaultOffers returns a fresh copy of the built-in offer tables. The order
// groups offers by provider; within a provider, smaller shapes come first.
func DefaultOffers() []Offer {
	var offers []Offer
	offers = append(offers, kubernetesOffers...)
	offers = append(offers, awsOffers...)
	offers = append(offers, gcpOffers...)
	offers = append(offers, azureOffers...)
	offers = append(offers, ibmOffers...)
	offers = append(offers, lambdaOffers...)
	return offers
}
